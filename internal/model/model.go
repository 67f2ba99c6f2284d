package model

import "time"

// Record represents one check-in event. Records are created by the recorder,
// deleted only by explicit operator action, and never mutated.
type Record struct {
	ID          int64     `json:"id"`
	StudentID   string    `json:"student_id"`
	StudentName string    `json:"student_name"`
	CourseCode  string    `json:"course_code"`
	Room        string    `json:"room"`
	Timestamp   time.Time `json:"timestamp"`
}

// StudentCount is one row of a per-subject attendance ranking.
type StudentCount struct {
	StudentName string `json:"student_name"`
	Count       int    `json:"count"`
}
