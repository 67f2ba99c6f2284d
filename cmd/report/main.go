// Report prints a day's check-ins (optionally filtered by subject) with each
// student's historical check-in total, ranks students of the filtered
// subject, and can export the filtered record set to an .xlsx file.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"classattend/internal/config"
	"classattend/internal/export"
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

	date := time.Now()
	if cfg.Report.Date != "" {
		date, err = time.ParseInLocation(store.DateLayout, cfg.Report.Date, time.Local)
		if err != nil {
			zl.Fatal("report.date must be YYYY-MM-DD", zap.Error(err))
		}
	}

	records, err := st.RecordsByDate(ctx, date, cfg.Report.Subject)
	if err != nil {
		zl.Fatal("load records", zap.Error(err))
	}

	fmt.Printf("Check-ins on %s", date.Format(store.DateLayout))
	if cfg.Report.Subject != "" {
		fmt.Printf(" for %s", cfg.Report.Subject)
	}
	fmt.Printf(": %d\n\n", len(records))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tID\tNAME\tTOTAL\tSUBJECT\tROOM")
	for _, r := range records {
		total, err := st.CountForStudent(ctx, r.StudentID)
		if err != nil {
			zl.Fatal("count for student", zap.String("student_id", r.StudentID), zap.Error(err))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			r.Timestamp.Format("15:04:05"), r.StudentID, r.StudentName, total, r.CourseCode, r.Room)
	}
	w.Flush()

	if cfg.Report.Subject != "" {
		stats, err := st.SubjectStats(ctx, cfg.Report.Subject)
		if err != nil {
			zl.Fatal("subject stats", zap.Error(err))
		}
		fmt.Printf("\nAttendance ranking for %s:\n", cfg.Report.Subject)
		for i, sc := range stats {
			fmt.Printf("%3d. %s (%d)\n", i+1, sc.StudentName, sc.Count)
		}
	}

	if cfg.Report.Export != "" {
		if err := export.WriteRecords(cfg.Report.Export, records); err != nil {
			zl.Fatal("export failed", zap.Error(err))
		}
		zl.Info("records exported",
			zap.String("path", cfg.Report.Export),
			zap.Int("records", len(records)),
		)
	}
}
