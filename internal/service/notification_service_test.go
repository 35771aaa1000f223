package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/courselab-api/internal/models"
	"github.com/noah-isme/courselab-api/pkg/mailer"
)

type captureSender struct {
	mu       sync.Mutex
	sent     []mailer.Message
	failures int
}

func (s *captureSender) Send(_ context.Context, msg mailer.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("mail server unavailable")
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *captureSender) messages() []mailer.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]mailer.Message(nil), s.sent...)
}

func TestNotificationServiceDeliversEnrollmentMail(t *testing.T) {
	sender := &captureSender{}
	svc := NewNotificationService(sender, NotificationConfig{Workers: 1}, nil)
	svc.Start(context.Background())
	defer svc.Stop()

	grade := 4.5
	svc.EnrollmentConfirmed(context.Background(), models.EnrollmentDetail{
		Enrollment:   models.Enrollment{Status: models.EnrollmentActive, EnrolledAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		StudentName:  "Ada Lovelace",
		StudentEmail: "ada@example.com",
		CourseTitle:  "Go Basics",
	})
	svc.EnrollmentClosed(context.Background(), models.EnrollmentDetail{
		Enrollment:   models.Enrollment{Status: models.EnrollmentCompleted, Grade: &grade},
		StudentName:  "Ada Lovelace",
		StudentEmail: "ada@example.com",
		CourseTitle:  "Go Basics",
	})

	require.Eventually(t, func() bool { return len(sender.messages()) == 2 }, time.Second, 5*time.Millisecond)
	msgs := sender.messages()
	subjects := []string{msgs[0].Subject, msgs[1].Subject}
	assert.Contains(t, subjects, "Enrolled in Go Basics")
	assert.Contains(t, subjects, "Go Basics: enrollment completed")
	for _, m := range msgs {
		assert.Equal(t, []string{"ada@example.com"}, m.To)
		if m.Subject == "Go Basics: enrollment completed" {
			assert.Contains(t, m.Text, "Final grade: 4.5")
		}
	}
}

func TestNotificationServiceRetriesFailedDelivery(t *testing.T) {
	sender := &captureSender{failures: 1}
	svc := NewNotificationService(sender, NotificationConfig{Workers: 1, Retries: 2, RetryDelay: time.Millisecond, AdminAddress: "admin@example.com"}, nil)
	svc.Start(context.Background())
	defer svc.Stop()

	svc.FeedbackReceived(context.Background(), models.Feedback{Name: "Sam", Email: "sam@example.com", Subject: "Hello", Message: "Great courses, thanks!"})

	require.Eventually(t, func() bool { return len(sender.messages()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "[feedback] Hello", sender.messages()[0].Subject)
	assert.Equal(t, uint64(1), svc.Stats().Retried)
}

func TestNotificationServiceSkipsMessagesWithoutRecipient(t *testing.T) {
	sender := &captureSender{}
	svc := NewNotificationService(sender, NotificationConfig{}, nil)
	svc.Start(context.Background())
	defer svc.Stop()

	svc.EnrollmentConfirmed(context.Background(), models.EnrollmentDetail{CourseTitle: "Go"})
	svc.FeedbackReceived(context.Background(), models.Feedback{Subject: "no admin configured"})

	assert.Never(t, func() bool { return len(sender.messages()) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}
