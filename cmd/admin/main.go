// Command admin runs operator tasks: schema migrations and account bootstrap.
package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/noah-isme/courselab-api/internal/models"
	"github.com/noah-isme/courselab-api/internal/repository"
	"github.com/noah-isme/courselab-api/internal/service"
	"github.com/noah-isme/courselab-api/migrations"
	"github.com/noah-isme/courselab-api/pkg/config"
	"github.com/noah-isme/courselab-api/pkg/database"
	"github.com/noah-isme/courselab-api/pkg/logger"
)

const usage = `usage: admin <command> [flags]

commands:
  migrate [up|down|status|redo|version]   run schema migrations (default up)
  adduser -username NAME -email ADDR [-admin] [-first NAME] [-last NAME]
  resetpassword -username NAME
`

const minPasswordLength = 8

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("connect postgres", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()
	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "migrate":
		err = migrate(ctx, db, args)
	case "adduser":
		err = addUser(ctx, db, args)
	case "resetpassword":
		err = resetPassword(ctx, db, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logr.Fatal(cmd+" failed", zap.Error(err))
	}
	logr.Info(cmd + " done")
}

func migrate(ctx context.Context, db *sqlx.DB, args []string) error {
	command := "up"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}
	return database.Migrate(ctx, db.DB, migrations.FS, command, args...)
}

func addUser(ctx context.Context, db *sqlx.DB, args []string) error {
	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	username := fs.String("username", "", "login name")
	email := fs.String("email", "", "email address")
	first := fs.String("first", "", "first name")
	last := fs.String("last", "", "last name")
	admin := fs.Bool("admin", false, "grant the ADMIN role instead of STUDENT")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*username) == "" || strings.TrimSpace(*email) == "" {
		return errors.New("-username and -email are required")
	}
	password, err := promptPassword()
	if err != nil {
		return err
	}
	hash, err := service.HashPassword(password)
	if err != nil {
		return err
	}

	repo := repository.NewUserRepository(db)
	user := &models.User{
		Username:     strings.TrimSpace(*username),
		Email:        strings.ToLower(strings.TrimSpace(*email)),
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(*first),
		LastName:     strings.TrimSpace(*last),
		Role:         models.RoleStudent,
		Active:       true,
	}
	var student *models.Student
	if *admin {
		user.Role = models.RoleAdmin
	} else {
		student = &models.Student{Faculty: models.FacultyCyberSecurity, Active: true}
	}
	if err := repo.CreateWithProfile(ctx, user, student, nil); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return fmt.Errorf("username or email already in use")
		}
		return err
	}
	fmt.Printf("created %s %s (%s)\n", strings.ToLower(string(user.Role)), user.Username, user.ID)
	return nil
}

func resetPassword(ctx context.Context, db *sqlx.DB, args []string) error {
	fs := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	username := fs.String("username", "", "login name or email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*username) == "" {
		return errors.New("-username is required")
	}

	repo := repository.NewUserRepository(db)
	user, err := repo.FindByLogin(ctx, strings.TrimSpace(*username))
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("user %q not found", *username)
	}
	if err != nil {
		return err
	}

	password, err := promptPassword()
	if err != nil {
		return err
	}
	hash, err := service.HashPassword(password)
	if err != nil {
		return err
	}
	if err := repo.UpdatePassword(ctx, user.ID, hash, time.Now().UTC()); err != nil {
		return err
	}
	if err := repo.RevokeUserRefreshTokens(ctx, user.ID); err != nil {
		return err
	}
	fmt.Printf("password reset for %s, sessions revoked\n", user.Username)
	return nil
}

// promptPassword reads a password without echo on a terminal, or a single
// line from piped stdin.
func promptPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read password: %w", err)
		}
		return checkPassword(strings.TrimRight(line, "\r\n"))
	}

	fmt.Fprint(os.Stderr, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	fmt.Fprint(os.Stderr, "Confirm password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return checkPassword(string(first))
}

func checkPassword(p string) (string, error) {
	if len(p) < minPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	return p, nil
}
