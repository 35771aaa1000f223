package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/courselab-api/internal/dto"
	"github.com/noah-isme/courselab-api/internal/models"
	"github.com/noah-isme/courselab-api/pkg/jobs"
	"github.com/noah-isme/courselab-api/pkg/mailer"
)

const mailJobType = "mail"

// NotificationConfig tunes the background mail queue.
type NotificationConfig struct {
	Workers      int
	Retries      int
	RetryDelay   time.Duration
	AdminAddress string
}

// NotificationService queues transactional mail. Delivery never blocks or
// fails the request that triggered it.
type NotificationService struct {
	queue        *jobs.Queue
	sender       mailer.Sender
	adminAddress string
	logger       *zap.Logger
}

// NewNotificationService builds the service and its worker queue.
func NewNotificationService(sender mailer.Sender, cfg NotificationConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{sender: sender, adminAddress: cfg.AdminAddress, logger: logger}
	s.queue = jobs.NewQueue("notifications", s.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.Retries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Stats reports queue counters.
func (s *NotificationService) Stats() dto.QueueStats {
	st := s.queue.Stats()
	return dto.QueueStats{Processed: st.Processed, Failed: st.Failed, Retried: st.Retried, Pending: st.Pending}
}

// EnrollmentConfirmed tells the student their enrollment was accepted.
func (s *NotificationService) EnrollmentConfirmed(ctx context.Context, e models.EnrollmentDetail) {
	s.enqueue(ctx, mailer.Message{
		To:      []string{e.StudentEmail},
		Subject: fmt.Sprintf("Enrolled in %s", e.CourseTitle),
		Text: fmt.Sprintf("Hi %s,\n\nyou are now enrolled in %q (since %s).\n",
			e.StudentName, e.CourseTitle, e.EnrolledAt.Format("2006-01-02")),
	})
}

// EnrollmentClosed tells the student their enrollment was completed or dropped.
func (s *NotificationService) EnrollmentClosed(ctx context.Context, e models.EnrollmentDetail) {
	body := fmt.Sprintf("Hi %s,\n\nyour enrollment in %q is now %s.\n", e.StudentName, e.CourseTitle, strings.ToLower(string(e.Status)))
	if e.Status == models.EnrollmentCompleted && e.Grade != nil {
		body += fmt.Sprintf("Final grade: %.1f\n", *e.Grade)
	}
	s.enqueue(ctx, mailer.Message{
		To:      []string{e.StudentEmail},
		Subject: fmt.Sprintf("%s: enrollment %s", e.CourseTitle, strings.ToLower(string(e.Status))),
		Text:    body,
	})
}

// FeedbackReceived forwards a contact form submission to the admin mailbox.
func (s *NotificationService) FeedbackReceived(ctx context.Context, fb models.Feedback) {
	if s.adminAddress == "" {
		return
	}
	s.enqueue(ctx, mailer.Message{
		To:      []string{s.adminAddress},
		Subject: "[feedback] " + fb.Subject,
		Text:    fmt.Sprintf("From: %s <%s>\n\n%s\n", fb.Name, fb.Email, fb.Message),
	})
}

func (s *NotificationService) enqueue(ctx context.Context, msg mailer.Message) {
	if err := msg.Validate(); err != nil {
		s.logger.Warn("notification skipped", zap.String("subject", msg.Subject), zap.Error(err))
		return
	}
	if err := s.queue.Enqueue(ctx, jobs.NewJob(mailJobType, msg)); err != nil {
		s.logger.Warn("notification not queued", zap.String("subject", msg.Subject), zap.Error(err))
	}
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	msg, ok := job.Payload.(mailer.Message)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.sender.Send(ctx, msg)
}
