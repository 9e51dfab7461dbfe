package dto

import "github.com/emadrasa/emadrasa-api/internal/models"

// ClassRequest creates or replaces a class. SubjectIDs defines the subject
// set schedule entries may reference; Schedule, when present, replaces the
// class's weekly schedule wholesale.
type ClassRequest struct {
	SchoolID         string                 `json:"schoolId" validate:"required"`
	Name             string                 `json:"name" validate:"required,min=1,max=150"`
	Grade            string                 `json:"grade" validate:"required"`
	TeacherID        *string                `json:"teacherId,omitempty"`
	PrimarySubjectID *string                `json:"primarySubjectId,omitempty"`
	SubjectIDs       []string               `json:"subjectIds"`
	MaxStudents      int                    `json:"maxStudents" validate:"required,min=1"`
	AcademicYear     string                 `json:"academicYear" validate:"required"`
	Schedule         []ScheduleEntryRequest `json:"schedule,omitempty"`
}

// ClassScheduleResponse pairs a saved class with the advisory conflicts its
// schedule produced.
type ClassScheduleResponse struct {
	Class     *models.ClassDetail `json:"class"`
	Conflicts []string            `json:"conflicts"`
}
