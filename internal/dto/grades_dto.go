package dto

import "time"

// GradeEntry is one assignment's grade line in a student report.
type GradeEntry struct {
	AssignmentID    uint       `json:"assignment_id"`
	AssignmentTitle string     `json:"assignment_title"`
	MaxMarks        float64    `json:"max_marks"`
	Status          string     `json:"status,omitempty"`
	MarksObtained   *float64   `json:"marks_obtained"`
	SubmittedAt     *time.Time `json:"submitted_at"`
}

// GradeReportResponse aggregates a student's grades across assignments.
type GradeReportResponse struct {
	StudentID   uint         `json:"student_id"`
	Entries     []GradeEntry `json:"entries"`
	GeneratedAt time.Time    `json:"generated_at"`
	CacheHit    bool         `json:"cache_hit"`
}
