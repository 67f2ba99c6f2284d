package attendance

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"classattend/internal/model"
	"classattend/internal/store"
)

var (
	// ErrSessionIncomplete means scanning was attempted before both the
	// subject and the room were chosen.
	ErrSessionIncomplete = errors.New("subject and room required")
	// ErrIdentityIncomplete means the decoded payload lacked an id or name.
	ErrIdentityIncomplete = errors.New("student id and name required")
)

// Session is the active (subject, room) pair new scans are recorded under.
// It is passed into every check-in explicitly; the recorder holds no mutable
// session state.
type Session struct {
	Subject string
	Room    string
}

func (s Session) Validate() error {
	if s.Subject == "" || s.Room == "" {
		return ErrSessionIncomplete
	}
	return nil
}

// Status classifies a check-in outcome. Failures are returned as errors, not
// statuses.
type Status string

const (
	StatusAccepted  Status = "accepted"
	StatusDuplicate Status = "duplicate"
)

// Result reports one check-in attempt. CheckedInAt carries the formatted
// check-in time for the confirmation message; it is empty on duplicates.
type Result struct {
	Status      Status
	Record      model.Record
	CheckedInAt string
}

// Recorder applies the duplicate policy and appends check-ins to the store.
// Duplicate scope is (student, subject, calendar date): a student may check
// into different subjects the same day, or the same subject on another day,
// but not twice into the same subject on the same day.
type Recorder struct {
	store  *store.Store
	logger *zap.Logger
}

func NewRecorder(st *store.Store, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{store: st, logger: logger}
}

// CheckIn records one attendance event for the student under the session.
func (r *Recorder) CheckIn(ctx context.Context, sess Session, studentID, studentName string) (Result, error) {
	if err := sess.Validate(); err != nil {
		return Result{}, err
	}
	if studentID == "" || studentName == "" {
		return Result{}, ErrIdentityIncomplete
	}

	rec, err := r.store.SaveAttendance(ctx, studentID, studentName, sess.Subject, sess.Room)
	if errors.Is(err, store.ErrDuplicate) {
		r.logger.Debug("duplicate check-in suppressed",
			zap.String("student_id", studentID),
			zap.String("subject", sess.Subject),
		)
		return Result{Status: StatusDuplicate}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("save check-in: %w", err)
	}

	r.logger.Debug("check-in recorded",
		zap.Int64("record_id", rec.ID),
		zap.String("student_id", studentID),
		zap.String("subject", sess.Subject),
		zap.String("room", sess.Room),
	)
	return Result{
		Status:      StatusAccepted,
		Record:      rec,
		CheckedInAt: rec.Timestamp.Format("15:04:05"),
	}, nil
}
