// Package scanner runs the live badge scan loop and the one-shot image
// upload path. The loop is the only writer of decoded events; results reach
// the primary goroutine through the queue, never by shared state.
package scanner

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"classattend/internal/attendance"
	"classattend/internal/qr"
	"classattend/internal/queue"
)

const (
	// DefaultCooldown throttles rapid-fire scans of a badge held in front
	// of the camera and bounds decode CPU cost.
	DefaultCooldown = 3 * time.Second
	// DefaultInterval is the fixed per-iteration sleep bounding CPU usage.
	DefaultInterval = 30 * time.Millisecond
)

// Source yields frames on demand and is released exactly once on stop.
// camera.Capture satisfies it; tests use fakes.
type Source interface {
	Read() (image.Image, error)
	Close() error
}

// Loop polls a Source, decodes at most once per cooldown window, and
// forwards the first payload of a frame to the recorder.
type Loop struct {
	src      Source
	recorder *attendance.Recorder
	sess     attendance.Session
	bus      queue.Queue
	logger   *zap.Logger

	interval time.Duration
	cooldown time.Duration
	now      func() time.Time

	// OnFrame, when set, receives every captured frame so a presentation
	// layer can refresh its live view. Called from the capture goroutine.
	OnFrame func(image.Image)
}

// New builds a scan loop. A non-positive cooldown falls back to the default.
func New(src Source, rec *attendance.Recorder, sess attendance.Session, bus queue.Queue, logger *zap.Logger, cooldown time.Duration) *Loop {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		src:      src,
		recorder: rec,
		sess:     sess,
		bus:      bus,
		logger:   logger.With(zap.String("scan_session", uuid.NewString())),
		interval: DefaultInterval,
		cooldown: cooldown,
		now:      time.Now,
	}
}

// Run blocks until the context is cancelled or the device fails. The source
// is closed on the way out; an in-flight decode that finishes after
// cancellation is discarded, not recorded.
func (l *Loop) Run(ctx context.Context) error {
	defer l.src.Close()

	l.logger.Info("scan loop started",
		zap.String("subject", l.sess.Subject),
		zap.String("room", l.sess.Room),
		zap.Duration("cooldown", l.cooldown),
	)

	var lastScan time.Time
	for {
		if err := ctx.Err(); err != nil {
			l.logger.Info("scan loop stopped")
			return err
		}

		frame, err := l.src.Read()
		if err != nil {
			l.logger.Error("frame acquisition failed", zap.Error(err))
			_ = l.bus.Publish(ctx, queue.Event{Kind: queue.KindDeviceFailed, Detail: "camera unavailable", Err: err})
			return err
		}
		if l.OnFrame != nil {
			l.OnFrame(frame)
		}

		if l.now().Sub(lastScan) >= l.cooldown {
			if texts, err := qr.DecodeImage(frame); err == nil && len(texts) > 0 {
				if ctx.Err() != nil {
					l.logger.Info("scan loop stopped")
					return ctx.Err()
				}
				handleRaw(ctx, l.recorder, l.sess, l.bus, texts[0])
				lastScan = l.now()
			}
		}

		select {
		case <-ctx.Done():
			l.logger.Info("scan loop stopped")
			return ctx.Err()
		case <-time.After(l.interval):
		}
	}
}

// ScanFile decodes a still image and forwards at most its first payload.
// No cooldown applies. A file without a QR code is reported on the bus as an
// expected outcome; an unreadable file is returned as an error.
func ScanFile(ctx context.Context, rec *attendance.Recorder, sess attendance.Session, bus queue.Queue, path string) error {
	texts, err := qr.DecodeFile(path)
	if errors.Is(err, qr.ErrNotFound) {
		return bus.Publish(ctx, queue.Event{Kind: queue.KindDecodeFailed, Detail: "no QR code found", Err: err})
	}
	if err != nil {
		return err
	}
	handleRaw(ctx, rec, sess, bus, texts[0])
	return nil
}

func handleRaw(ctx context.Context, rec *attendance.Recorder, sess attendance.Session, bus queue.Queue, raw string) {
	p, err := qr.ParsePayload(raw)
	if err != nil {
		_ = bus.Publish(ctx, queue.Event{Kind: queue.KindDecodeFailed, Detail: "invalid badge format", Err: err})
		return
	}

	res, err := rec.CheckIn(ctx, sess, p.StudentID, p.Name)
	if err != nil {
		_ = bus.Publish(ctx, queue.Event{
			Kind:        queue.KindStorageFailed,
			StudentID:   p.StudentID,
			StudentName: p.Name,
			Detail:      err.Error(),
			Err:         err,
		})
		return
	}

	evt := queue.Event{StudentID: p.StudentID, StudentName: p.Name}
	switch res.Status {
	case attendance.StatusDuplicate:
		evt.Kind = queue.KindDuplicate
		evt.Detail = "already checked in today"
	default:
		evt.Kind = queue.KindAccepted
		evt.Detail = res.CheckedInAt
	}
	_ = bus.Publish(ctx, evt)
}
