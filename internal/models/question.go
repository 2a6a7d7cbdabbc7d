package models

import (
	"time"

	"gorm.io/datatypes"
)

// Question is a single programming problem owned by a teacher.
//
// Examples holds input/output pairs shown to students; TestCases holds
// the hidden cases handed to the external judge. Both are stored as
// JSON documents since they are opaque to the persistence layer.
type Question struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Prompt    string         `gorm:"type:text;not null" json:"prompt"`
	Subject   string         `gorm:"size:128" json:"subject"`
	Marks     float64        `gorm:"not null;default:10" json:"marks"`
	Examples  datatypes.JSON `gorm:"type:json" json:"examples"`
	TestCases datatypes.JSON `gorm:"type:json" json:"test_cases"`
	TeacherID uint           `gorm:"not null" json:"teacher_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Teacher   Teacher        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"teacher"`
}

// QuestionExample is one sample input/output pair serialized into Examples.
type QuestionExample struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// QuestionTestCase is one hidden judge case serialized into TestCases.
type QuestionTestCase struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
}
