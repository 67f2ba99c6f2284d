// Badge generates a student's personal QR badge PNG from the configured
// identity (ATTEND_BADGE_STUDENT_ID / ATTEND_BADGE_STUDENT_NAME).
package main

import (
	"log"
	"os"

	"go.uber.org/zap"

	"classattend/internal/config"
	"classattend/internal/qr"
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

	p := qr.Payload{StudentID: cfg.Badge.StudentID, Name: cfg.Badge.StudentName}
	if p.StudentID == "" || p.Name == "" {
		zl.Fatal("set badge.student_id and badge.student_name")
	}

	if err := qr.WritePNG(cfg.Badge.Out, p, cfg.Badge.Size); err != nil {
		zl.Fatal("badge generation failed", zap.Error(err))
	}
	zl.Info("badge written",
		zap.String("student_id", p.StudentID),
		zap.String("student_name", p.Name),
		zap.String("path", cfg.Badge.Out),
		zap.Int("size", cfg.Badge.Size),
	)
}
