package models

import "time"

// Class represents a class (section) within a school.
type Class struct {
	ID               string    `db:"id" json:"id"`
	SchoolID         string    `db:"school_id" json:"school_id"`
	Name             string    `db:"name" json:"name"`
	Grade            string    `db:"grade" json:"grade"`
	TeacherID        *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	PrimarySubjectID *string   `db:"primary_subject_id" json:"primary_subject_id,omitempty"`
	MaxStudents      int       `db:"max_students" json:"max_students"`
	CurrentStudents  int       `db:"current_students" json:"current_students"`
	AcademicYear     string    `db:"academic_year" json:"academic_year"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// ClassDetail extends Class with joined names and the subject set.
type ClassDetail struct {
	Class
	SchoolName  string   `db:"school_name" json:"school_name"`
	TeacherName *string  `db:"teacher_name" json:"teacher_name,omitempty"`
	SubjectIDs  []string `db:"-" json:"subject_ids"`
}

// HasSubject reports whether the subject belongs to the class's subject set.
func (c ClassDetail) HasSubject(subjectID string) bool {
	for _, id := range c.SubjectIDs {
		if id == subjectID {
			return true
		}
	}
	return false
}

// ClassFilter defines filter criteria for listing classes.
type ClassFilter struct {
	SchoolID     string
	TeacherID    string
	Grade        string
	AcademicYear string
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
