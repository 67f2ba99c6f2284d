// Station runs the teacher-side scan station: it records check-ins against
// the configured (subject, room) session from the live camera, or from a
// single still image when ATTEND_SCAN_IMAGE is set.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"classattend/internal/attendance"
	"classattend/internal/camera"
	"classattend/internal/config"
	"classattend/internal/queue"
	"classattend/internal/scanner"
	"classattend/internal/store"
	"classattend/pkg/logger"
)

func main() {
	cfg, err := config.Load(os.Getenv("ATTEND_CONFIG"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(&cfg.Log)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zl.Sync()

	st, err := store.New(cfg.DBPath)
	if err != nil {
		zl.Fatal("open store", zap.Error(err))
	}
	defer st.Close()

	sess := attendance.Session{Subject: cfg.Session.Subject, Room: cfg.Session.Room}
	if err := sess.Validate(); err != nil {
		zl.Fatal("set session.subject and session.room before scanning", zap.Error(err))
	}

	rec := attendance.NewRecorder(st, zl)
	bus := queue.NewInMemory(64)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		zl.Info("shutdown signal received")
		cancel()
	}()

	if cfg.Scan.Image != "" {
		runUpload(ctx, zl, rec, sess, bus, cfg.Scan.Image)
		return
	}
	runLive(ctx, zl, rec, sess, bus, cfg)
}

// runUpload decodes one still image and reports its single outcome.
func runUpload(ctx context.Context, zl *zap.Logger, rec *attendance.Recorder, sess attendance.Session, bus queue.Queue, path string) {
	events, err := bus.Consume(ctx)
	if err != nil {
		zl.Fatal("event consume init", zap.Error(err))
	}
	if err := scanner.ScanFile(ctx, rec, sess, bus, path); err != nil {
		zl.Fatal("upload scan failed", zap.String("image", path), zap.Error(err))
	}
	render(zl, <-events)
}

// runLive runs the camera loop until a signal arrives or the device fails.
func runLive(ctx context.Context, zl *zap.Logger, rec *attendance.Recorder, sess attendance.Session, bus queue.Queue, cfg *config.Config) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cam, err := camera.Open(cfg.Scan.CameraIndex)
	if err != nil {
		zl.Fatal("camera open failed", zap.Int("index", cfg.Scan.CameraIndex), zap.Error(err))
	}

	events, err := bus.Consume(ctx)
	if err != nil {
		zl.Fatal("event consume init", zap.Error(err))
	}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for evt := range events {
			render(zl, evt)
		}
	}()

	loop := scanner.New(cam, rec, sess, bus, zl, cfg.Scan.Cooldown)
	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		zl.Error("scan loop failed", zap.Error(err))
	}
	cancel()
	wg.Wait()
}

// render logs one scan outcome. Duplicates and decode misses are expected,
// frequent outcomes; storage and device failures are not.
func render(zl *zap.Logger, evt queue.Event) {
	fields := []zap.Field{
		zap.String("student_id", evt.StudentID),
		zap.String("student_name", evt.StudentName),
	}
	switch evt.Kind {
	case queue.KindAccepted:
		zl.Info("check-in recorded at "+evt.Detail, fields...)
	case queue.KindDuplicate:
		zl.Warn("duplicate check-in", fields...)
	case queue.KindDecodeFailed:
		zl.Warn(evt.Detail, zap.Error(evt.Err))
	default:
		zl.Error(evt.Detail, zap.Error(evt.Err))
	}
}
