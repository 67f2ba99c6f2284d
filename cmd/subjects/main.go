// Subjects administers the subject list and prunes check-ins: it applies the
// configured operator actions (ATTEND_ADMIN_ADD_SUBJECT,
// ATTEND_ADMIN_DELETE_SUBJECT, ATTEND_ADMIN_DELETE_RECORD), then prints the
// current subject list.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"classattend/internal/config"
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

	ctx := context.Background()

	if name := cfg.Admin.AddSubject; name != "" {
		switch err := st.AddSubject(ctx, name); {
		case errors.Is(err, store.ErrSubjectExists):
			zl.Warn("subject already exists", zap.String("subject", name))
		case err != nil:
			zl.Fatal("add subject failed", zap.String("subject", name), zap.Error(err))
		default:
			zl.Info("subject added", zap.String("subject", name))
		}
	}

	if name := cfg.Admin.DeleteSubject; name != "" {
		// Historical check-ins for the subject are kept (no cascade).
		if err := st.DeleteSubject(ctx, name); err != nil {
			zl.Fatal("delete subject failed", zap.String("subject", name), zap.Error(err))
		}
		zl.Info("subject deleted", zap.String("subject", name))
	}

	if id := cfg.Admin.DeleteRecord; id > 0 {
		if err := st.DeleteRecord(ctx, id); err != nil {
			zl.Fatal("delete record failed", zap.Int64("record_id", id), zap.Error(err))
		}
		zl.Info("record deleted", zap.Int64("record_id", id))
	}

	subjects, err := st.ListSubjects(ctx)
	if err != nil {
		zl.Fatal("list subjects", zap.Error(err))
	}
	fmt.Printf("Subjects: %d\n", len(subjects))
	for _, name := range subjects {
		fmt.Printf("  %s\n", name)
	}
}
