package dto

// SchoolRequest creates or updates a school.
type SchoolRequest struct {
	Name    string `json:"name" validate:"required,min=1,max=200"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// TeacherRequest creates or updates a teacher.
type TeacherRequest struct {
	SchoolID         string `json:"schoolId" validate:"required"`
	FullName         string `json:"fullName" validate:"required,min=1,max=150"`
	Email            string `json:"email" validate:"omitempty,email"`
	Phone            string `json:"phone"`
	SubjectSpecialty string `json:"subjectSpecialty"`
}

// StudentRequest creates or updates a student.
type StudentRequest struct {
	SchoolID      string `json:"schoolId" validate:"required"`
	FullName      string `json:"fullName" validate:"required,min=1,max=150"`
	DateOfBirth   string `json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
	GuardianName  string `json:"guardianName"`
	GuardianPhone string `json:"guardianPhone"`
}

// SubjectRequest creates or updates a subject.
type SubjectRequest struct {
	Name string `json:"name" validate:"required,min=1,max=150"`
	Code string `json:"code" validate:"required,min=1,max=20"`
}
