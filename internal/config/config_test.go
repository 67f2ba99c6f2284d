package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "./attendance.db" {
		t.Errorf("db_path default = %q", cfg.DBPath)
	}
	if cfg.Scan.Cooldown != 3*time.Second {
		t.Errorf("scan.cooldown default = %v", cfg.Scan.Cooldown)
	}
	if cfg.Badge.Size != 280 {
		t.Errorf("badge.size default = %d", cfg.Badge.Size)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("db_path: /tmp/x.db\nsession:\n  subject: Math101\n  room: Room1\nscan:\n  cooldown: 5s\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/tmp/x.db" {
		t.Errorf("db_path = %q", cfg.DBPath)
	}
	if cfg.Session.Subject != "Math101" || cfg.Session.Room != "Room1" {
		t.Errorf("session = %+v", cfg.Session)
	}
	if cfg.Scan.Cooldown != 5*time.Second {
		t.Errorf("scan.cooldown = %v", cfg.Scan.Cooldown)
	}
}

func TestLoad_BadgeIdentityFromEnv(t *testing.T) {
	t.Setenv("ATTEND_BADGE_STUDENT_ID", "S001")
	t.Setenv("ATTEND_BADGE_STUDENT_NAME", "Alice")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Badge.StudentID != "S001" {
		t.Errorf("badge.student_id from env = %q, want S001", cfg.Badge.StudentID)
	}
	if cfg.Badge.StudentName != "Alice" {
		t.Errorf("badge.student_name from env = %q, want Alice", cfg.Badge.StudentName)
	}
}

func TestLoad_AdminFromEnv(t *testing.T) {
	t.Setenv("ATTEND_ADMIN_ADD_SUBJECT", "Math101")
	t.Setenv("ATTEND_ADMIN_DELETE_RECORD", "7")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Admin.AddSubject != "Math101" {
		t.Errorf("admin.add_subject from env = %q, want Math101", cfg.Admin.AddSubject)
	}
	if cfg.Admin.DeleteRecord != 7 {
		t.Errorf("admin.delete_record from env = %d, want 7", cfg.Admin.DeleteRecord)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{DBPath: ""}
	if err := cfg.Validate(); err == nil {
		t.Error("empty db_path must fail validation")
	}
	cfg = &Config{DBPath: "x.db"}
	cfg.Scan.Cooldown = -time.Second
	if err := cfg.Validate(); err == nil {
		t.Error("negative cooldown must fail validation")
	}
}
