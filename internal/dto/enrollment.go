package dto

import "github.com/emadrasa/emadrasa-api/internal/models"

// EnrollStudentRequest opens a new active enrollment. EnrollmentDate defaults
// to the current date when absent.
type EnrollStudentRequest struct {
	StudentID      string `json:"studentId" validate:"required"`
	ClassID        string `json:"classId" validate:"required"`
	EnrollmentDate string `json:"enrollmentDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	AcademicYear   string `json:"academicYear" validate:"required"`
}

// BulkEnrollRequest enrolls several students into one class at once.
type BulkEnrollRequest struct {
	ClassID        string   `json:"classId" validate:"required"`
	StudentIDs     []string `json:"studentIds" validate:"required,min=1,dive,required"`
	EnrollmentDate string   `json:"enrollmentDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	AcademicYear   string   `json:"academicYear" validate:"required"`
}

// BulkEnrollResponse reports the per-student outcome of a bulk enrollment.
// The operation is best effort: failures never roll back earlier successes.
// Each error message is prefixed with the rejected student's ID.
type BulkEnrollResponse struct {
	Created []models.EnrollmentDetail `json:"created"`
	Errors  []string                  `json:"errors"`
}

// UpdateEnrollmentStatusRequest moves an enrollment to a new lifecycle status.
type UpdateEnrollmentStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// TransferEnrollmentRequest moves a student's active enrollment to another class.
type TransferEnrollmentRequest struct {
	NewClassID string `json:"newClassId" validate:"required"`
}
