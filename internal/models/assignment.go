package models

import "time"

// Assignment identifies one graded task scoped to a course.
//
// Questions is the pool a student's question is drawn from at submit
// time; Students is the eligible-student set. Both are join tables so
// membership checks stay queryable.
type Assignment struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Title     string     `gorm:"size:255;not null" json:"title"`
	CourseID  uint       `gorm:"not null" json:"course_id"`
	TeacherID uint       `gorm:"not null" json:"teacher_id"`
	OpenAt    time.Time  `gorm:"not null" json:"open_at"`
	DueAt     time.Time  `gorm:"not null" json:"due_at"`
	MaxMarks  float64    `gorm:"not null;default:10" json:"max_marks"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Course    Course     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"course"`
	Teacher   Teacher    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"teacher"`
	Questions []Question `gorm:"many2many:assignment_questions" json:"questions"`
	Students  []Student  `gorm:"many2many:assignment_students" json:"students"`
}

// IsOpenAt reports whether the submission window covers the reference time.
func (a Assignment) IsOpenAt(reference time.Time) bool {
	return !reference.Before(a.OpenAt) && !reference.After(a.DueAt)
}

// HasStudent reports whether the given student is in the eligible set.
func (a Assignment) HasStudent(studentID uint) bool {
	for _, student := range a.Students {
		if student.ID == studentID {
			return true
		}
	}
	return false
}
