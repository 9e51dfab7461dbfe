package models

import "time"

// Teacher represents a teaching staff member.
type Teacher struct {
	ID               string    `db:"id" json:"id"`
	SchoolID         string    `db:"school_id" json:"school_id"`
	FullName         string    `db:"full_name" json:"full_name"`
	Email            string    `db:"email" json:"email"`
	Phone            string    `db:"phone" json:"phone"`
	SubjectSpecialty string    `db:"subject_specialty" json:"subject_specialty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// TeacherFilter captures filtering criteria for listing teachers.
type TeacherFilter struct {
	SchoolID  string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
