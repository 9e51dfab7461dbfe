package models

import (
	"fmt"
	"time"
)

// DayNames maps dayOfWeek values to display labels. The numeric value is
// stored as an opaque 0-6 integer; only presentation uses this mapping.
var DayNames = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// DayName returns the display label for a 0-6 day index.
func DayName(day int) string {
	if day < 0 || day > 6 {
		return "Unknown"
	}
	return DayNames[day]
}

// ScheduleEntry is a recurring weekly session belonging to a class.
type ScheduleEntry struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	DayOfWeek int       `db:"day_of_week" json:"day_of_week"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	Room      string    `db:"room" json:"room,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ScheduleEntryDetail joins a schedule entry with class, subject, teacher
// and school context for presentation.
type ScheduleEntryDetail struct {
	ScheduleEntry
	ClassName   string  `db:"class_name" json:"class_name"`
	SubjectName string  `db:"subject_name" json:"subject_name"`
	SchoolName  string  `db:"school_name" json:"school_name"`
	TeacherID   *string `db:"teacher_id" json:"teacher_id,omitempty"`
	TeacherName *string `db:"teacher_name" json:"teacher_name,omitempty"`
}

// TimeRange returns the entry's weekly time range.
func (e ScheduleEntry) TimeRange() (TimeRange, error) {
	return NewTimeRange(e.DayOfWeek, e.StartTime, e.EndTime)
}

// TimeRange is a day-of-week slot expressed in minutes since midnight.
// Ranges are half-open: the end minute itself is not occupied.
type TimeRange struct {
	Day   int
	Start int
	End   int
}

// NewTimeRange parses HH:MM boundaries and validates the range.
func NewTimeRange(day int, start, end string) (TimeRange, error) {
	if day < 0 || day > 6 {
		return TimeRange{}, fmt.Errorf("day of week must be between 0 and 6, got %d", day)
	}
	startMin, err := ParseClock(start)
	if err != nil {
		return TimeRange{}, err
	}
	endMin, err := ParseClock(end)
	if err != nil {
		return TimeRange{}, err
	}
	if startMin >= endMin {
		return TimeRange{}, fmt.Errorf("start time %s must be before end time %s", start, end)
	}
	return TimeRange{Day: day, Start: startMin, End: endMin}, nil
}

// Overlaps reports whether two ranges share any minute on the same day.
// Touching endpoints (one ends exactly when the other starts) do not overlap.
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Day == other.Day && r.Start < other.End && other.Start < r.End
}

// Hours returns the duration of the range in fractional hours.
func (r TimeRange) Hours() float64 {
	return float64(r.End-r.Start) / 60.0
}

// ParseClock converts an HH:MM wall-clock string to minutes since midnight.
func ParseClock(value string) (int, error) {
	if len(value) != 5 || value[2] != ':' {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", value)
	}
	var hh, mm int
	if _, err := fmt.Sscanf(value, "%02d:%02d", &hh, &mm); err != nil {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", value)
	}
	if hh > 23 || mm > 59 {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", value)
	}
	return hh*60 + mm, nil
}

// ScheduleFilter describes query params for listing schedule entries.
type ScheduleFilter struct {
	ClassID   string
	SubjectID string
	DayOfWeek *int
	Room      string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
