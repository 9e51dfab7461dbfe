package models

import "time"

// EnrollmentStatus represents the lifecycle state of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses. Only active enrollments count toward class
// capacity.
const (
	EnrollmentStatusActive      EnrollmentStatus = "active"
	EnrollmentStatusInactive    EnrollmentStatus = "inactive"
	EnrollmentStatusTransferred EnrollmentStatus = "transferred"
	EnrollmentStatusGraduated   EnrollmentStatus = "graduated"
)

// Valid reports whether s is one of the known statuses.
func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentStatusActive, EnrollmentStatusInactive, EnrollmentStatusTransferred, EnrollmentStatusGraduated:
		return true
	}
	return false
}

// AllowedStatusTransitions makes the status state machine explicit. Every
// transition between the four statuses is currently permitted so that
// administrators can correct mistakes (e.g. graduated back to active);
// tightening the machine later only requires editing this table.
var AllowedStatusTransitions = map[EnrollmentStatus][]EnrollmentStatus{
	EnrollmentStatusActive:      {EnrollmentStatusActive, EnrollmentStatusInactive, EnrollmentStatusTransferred, EnrollmentStatusGraduated},
	EnrollmentStatusInactive:    {EnrollmentStatusActive, EnrollmentStatusInactive, EnrollmentStatusTransferred, EnrollmentStatusGraduated},
	EnrollmentStatusTransferred: {EnrollmentStatusActive, EnrollmentStatusInactive, EnrollmentStatusTransferred, EnrollmentStatusGraduated},
	EnrollmentStatusGraduated:   {EnrollmentStatusActive, EnrollmentStatusInactive, EnrollmentStatusTransferred, EnrollmentStatusGraduated},
}

// CanTransition reports whether moving from one status to another is allowed.
func CanTransition(from, to EnrollmentStatus) bool {
	for _, allowed := range AllowedStatusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Enrollment links a student to a class.
type Enrollment struct {
	ID             string           `db:"id" json:"id"`
	StudentID      string           `db:"student_id" json:"student_id"`
	ClassID        string           `db:"class_id" json:"class_id"`
	Status         EnrollmentStatus `db:"status" json:"status"`
	EnrollmentDate time.Time        `db:"enrollment_date" json:"enrollment_date"`
	AcademicYear   string           `db:"academic_year" json:"academic_year"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches Enrollment with student and class info.
type EnrollmentDetail struct {
	Enrollment
	StudentName string `db:"student_name" json:"student_name"`
	ClassName   string `db:"class_name" json:"class_name"`
	SchoolName  string `db:"school_name" json:"school_name"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID    string
	ClassID      string
	Status       EnrollmentStatus
	AcademicYear string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
