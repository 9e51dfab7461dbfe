package models

import "time"

// Student represents a learner registered at a school.
type Student struct {
	ID            string     `db:"id" json:"id"`
	SchoolID      string     `db:"school_id" json:"school_id"`
	FullName      string     `db:"full_name" json:"full_name"`
	DateOfBirth   *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	GuardianName  string     `db:"guardian_name" json:"guardian_name"`
	GuardianPhone string     `db:"guardian_phone" json:"guardian_phone"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// StudentDetail enriches Student with its school name.
type StudentDetail struct {
	Student
	SchoolName string `db:"school_name" json:"school_name"`
}

// StudentFilter captures filtering criteria for listing students.
type StudentFilter struct {
	SchoolID  string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
