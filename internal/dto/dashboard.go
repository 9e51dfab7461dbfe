package dto

// DashboardStatsResponse captures the aggregated admin dashboard payload.
type DashboardStatsResponse struct {
	Totals      DashboardTotals           `json:"totals"`
	Enrollments EnrollmentStatusBreakdown `json:"enrollments"`
	Rooms       DashboardRoomsSection     `json:"rooms"`
}

// DashboardTotals counts the primary entities.
type DashboardTotals struct {
	Schools  int `json:"schools"`
	Teachers int `json:"teachers"`
	Students int `json:"students"`
	Classes  int `json:"classes"`
	Subjects int `json:"subjects"`
}

// EnrollmentStatusBreakdown counts enrollments per status.
type EnrollmentStatusBreakdown struct {
	Active      int `json:"active"`
	Inactive    int `json:"inactive"`
	Transferred int `json:"transferred"`
	Graduated   int `json:"graduated"`
}

// DashboardRoomsSection summarises room load for the dashboard.
type DashboardRoomsSection struct {
	TotalRooms     int     `json:"totalRooms"`
	BusiestRoom    string  `json:"busiestRoom,omitempty"`
	BusiestHours   float64 `json:"busiestHours,omitempty"`
	TotalConflicts int     `json:"totalConflicts"`
}
