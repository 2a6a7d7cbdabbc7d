package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// SubmissionEvent tells the owning teacher that a student handed in an
// attempt. Delivery is best effort; grading never blocks on it.
type SubmissionEvent struct {
	SubmissionID uint      `json:"submission_id"`
	AssignmentID uint      `json:"assignment_id"`
	StudentID    uint      `json:"student_id"`
	TeacherID    uint      `json:"teacher_id"`
	Resubmission bool      `json:"resubmission"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// Publisher fans out submission events to interested consumers.
type Publisher interface {
	PublishSubmissionReceived(ctx context.Context, event SubmissionEvent) error
}

// Connect dials the NATS server at the given URL.
func Connect(url string) (*nats.Conn, error) {
	if url == "" {
		return nil, fmt.Errorf("nats url must not be empty")
	}

	conn, err := nats.Connect(url, nats.Name("acadgrade-api"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	return conn, nil
}

type natsPublisher struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewNATSPublisher wraps a NATS connection as a Publisher. Subjects are
// suffixed with the teacher id so teachers can subscribe selectively.
func NewNATSPublisher(conn *nats.Conn, subject string, logger zerolog.Logger) Publisher {
	if subject == "" {
		subject = "acadgrade.submissions"
	}

	return &natsPublisher{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "nats_publisher").Logger(),
	}
}

func (p *natsPublisher) PublishSubmissionReceived(_ context.Context, event SubmissionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode submission event: %w", err)
	}

	subject := fmt.Sprintf("%s.teacher.%d", p.subject, event.TeacherID)
	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish submission event: %w", err)
	}

	p.logger.Debug().Uint("submission_id", event.SubmissionID).Str("subject", subject).Msg("submission event published")
	return nil
}
