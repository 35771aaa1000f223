package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/courselab-api/internal/authz"
	"github.com/noah-isme/courselab-api/internal/models"
	appErrors "github.com/noah-isme/courselab-api/pkg/errors"
	"github.com/noah-isme/courselab-api/pkg/export"
	"github.com/noah-isme/courselab-api/pkg/storage"
)

type rosterSource interface {
	Roster(ctx context.Context, p authz.Principal, courseRef string) (*models.CourseDetail, []models.RosterEntry, error)
}

type exportStore interface {
	Write(name string, data []byte) error
	Read(name string) ([]byte, error)
	Sweep(now time.Time, maxAge time.Duration) (int, error)
}

type exportSigner interface {
	Sign(name string) (string, time.Time, error)
	Verify(token string) (string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	TTL       time.Duration
}

// ExportFile is a rendered document ready to be sent.
type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// ExportLink points at a stored export through a signed token.
type ExportLink struct {
	URL       string    `json:"url"`
	Token     string    `json:"token"`
	Format    string    `json:"format"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ExportService renders course rosters and keeps published copies for
// download through expiring links.
type ExportService struct {
	rosters rosterSource
	store   exportStore
	signer  exportSigner
	cfg     ExportConfig
	logger  *zap.Logger
	now     func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(rosters rosterSource, store exportStore, signer exportSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	return &ExportService{rosters: rosters, store: store, signer: signer, cfg: cfg, logger: logger, now: time.Now}
}

// RenderRoster builds the roster document for a course the caller may view.
func (s *ExportService) RenderRoster(ctx context.Context, p authz.Principal, courseRef, rawFormat string) (*ExportFile, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, appErrors.WithFields(appErrors.ErrValidation, map[string]string{"format": "format must be csv or pdf"})
	}
	course, roster, err := s.rosters.Roster(ctx, p, courseRef)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	payload, err := export.Render(rosterDataset(course, roster, now), format)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render roster")
	}
	name := fmt.Sprintf("roster_%s_%s.%s", sanitizeFilename(course.Slug), now.Format("20060102_150405"), format)
	return &ExportFile{Name: name, ContentType: format.ContentType(), Data: payload}, nil
}

// PublishRoster renders the roster, stores it and returns a signed link.
func (s *ExportService) PublishRoster(ctx context.Context, p authz.Principal, courseRef, rawFormat string) (*ExportLink, error) {
	file, err := s.RenderRoster(ctx, p, courseRef, rawFormat)
	if err != nil {
		return nil, err
	}
	if err := s.store.Write(file.Name, file.Data); err != nil {
		return nil, appErrors.Internal(err, "failed to store export")
	}
	token, expiresAt, err := s.signer.Sign(file.Name)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to sign export link")
	}
	return &ExportLink{
		URL:       strings.TrimRight(s.cfg.APIPrefix, "/") + "/exports/" + token,
		Token:     token,
		Format:    strings.TrimPrefix(filepath.Ext(file.Name), "."),
		ExpiresAt: expiresAt,
	}, nil
}

// Download resolves a signed token to the stored file.
func (s *ExportService) Download(token string) (*ExportFile, error) {
	name, err := s.signer.Verify(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
	}
	data, err := s.store.Read(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
		}
		return nil, appErrors.Internal(err, "failed to read export")
	}
	format := export.FormatCSV
	if strings.HasSuffix(name, ".pdf") {
		format = export.FormatPDF
	}
	return &ExportFile{Name: name, ContentType: format.ContentType(), Data: data}, nil
}

// Sweep deletes stored exports older than the link TTL.
func (s *ExportService) Sweep() (int, error) {
	removed, err := s.store.Sweep(s.now(), s.cfg.TTL)
	if err != nil {
		return removed, err
	}
	if removed > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", removed))
	}
	return removed, nil
}

// RunSweeper calls Sweep every interval until ctx ends.
func (s *ExportService) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(); err != nil {
				s.logger.Warn("export sweep failed", zap.Error(err))
			}
		}
	}
}

func rosterDataset(course *models.CourseDetail, roster []models.RosterEntry, now time.Time) export.Dataset {
	rows := make([][]string, 0, len(roster))
	for _, r := range roster {
		grade := ""
		if r.Grade != nil {
			grade = strconv.FormatFloat(*r.Grade, 'f', 1, 64)
		}
		completed := ""
		if r.CompletedAt != nil {
			completed = r.CompletedAt.UTC().Format("2006-01-02")
		}
		rows = append(rows, []string{
			r.StudentNumber,
			strings.TrimSpace(r.LastName + ", " + r.FirstName),
			r.Email,
			string(r.Status),
			grade,
			r.EnrolledAt.UTC().Format("2006-01-02"),
			completed,
		})
	}
	return export.Dataset{
		Title:       fmt.Sprintf("%s - roster (%d/%d active)", course.Title, course.ActiveEnrollments, course.MaxStudents),
		Headers:     []string{"Student No.", "Name", "Email", "Status", "Grade", "Enrolled", "Completed"},
		Rows:        rows,
		GeneratedAt: now,
	}
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "course"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
