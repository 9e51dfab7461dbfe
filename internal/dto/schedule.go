package dto

// ValidateScheduleRequest is the payload for the schedule validation endpoint.
type ValidateScheduleRequest struct {
	ClassID   string `json:"classId" validate:"required"`
	SubjectID string `json:"subjectId" validate:"required"`
	DayOfWeek int    `json:"dayOfWeek" validate:"min=0,max=6"`
	StartTime string `json:"startTime" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"`
	Room      string `json:"room"`
}

// ValidateScheduleResponse reports whether a candidate slot is conflict free.
// Conflicts are advisory: the caller decides whether to proceed.
type ValidateScheduleResponse struct {
	Valid     bool            `json:"valid"`
	Conflicts []string        `json:"conflicts"`
	Schedule  CandidateScheduleView `json:"schedule"`
}

// CandidateScheduleView echoes the candidate slot back with display labels.
type CandidateScheduleView struct {
	ClassID   string `json:"classId"`
	SubjectID string `json:"subjectId"`
	DayOfWeek int    `json:"dayOfWeek"`
	DayName   string `json:"dayName"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Room      string `json:"room,omitempty"`
}

// ConflictReportResponse is the system-wide double-booking report.
type ConflictReportResponse struct {
	TotalConflicts int                  `json:"totalConflicts"`
	Conflicts      []ScheduleConflictItem `json:"conflicts"`
}

// ScheduleConflictItem describes one schedule entry and its conflicts.
type ScheduleConflictItem struct {
	ScheduleID  string   `json:"scheduleId"`
	ClassName   string   `json:"className"`
	SubjectName string   `json:"subjectName"`
	DayOfWeek   int      `json:"dayOfWeek"`
	DayName     string   `json:"dayName"`
	TimeRange   string   `json:"timeRange"`
	Room        string   `json:"room,omitempty"`
	Conflicts   []string `json:"conflicts"`
}

// RoomUtilizationResponse aggregates booked hours per room.
type RoomUtilizationResponse struct {
	TotalRooms int               `json:"totalRooms"`
	Rooms      []RoomUtilization `json:"rooms"`
}

// RoomUtilization summarises one room's weekly load.
type RoomUtilization struct {
	Room       string        `json:"room"`
	TotalHours float64       `json:"totalHours"`
	Sessions   []RoomSession `json:"sessions"`
	Conflicts  []string      `json:"conflicts"`
}

// RoomSession is a single booked slot within a room.
type RoomSession struct {
	ScheduleID  string  `json:"scheduleId"`
	ClassName   string  `json:"className"`
	SubjectName string  `json:"subjectName"`
	DayOfWeek   int     `json:"dayOfWeek"`
	DayName     string  `json:"dayName"`
	TimeRange   string  `json:"timeRange"`
	Hours       float64 `json:"hours"`
}

// ScheduleEntryRequest is one proposed slot in a class schedule payload.
type ScheduleEntryRequest struct {
	SubjectID string `json:"subjectId" validate:"required"`
	DayOfWeek int    `json:"dayOfWeek" validate:"min=0,max=6"`
	StartTime string `json:"startTime" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"`
	Room      string `json:"room"`
}
