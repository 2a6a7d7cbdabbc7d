package models

import "time"

// Course groups assignments under a class cohort.
type Course struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Batch     string    `gorm:"size:64" json:"batch"`
	TeacherID uint      `gorm:"not null" json:"teacher_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Teacher   Teacher   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"teacher"`
}
