package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnrollmentStatusValid(t *testing.T) {
	for _, status := range []EnrollmentStatus{
		EnrollmentStatusActive, EnrollmentStatusInactive,
		EnrollmentStatusTransferred, EnrollmentStatusGraduated,
	} {
		assert.True(t, status.Valid(), status)
	}
	assert.False(t, EnrollmentStatus("expelled").Valid())
	assert.False(t, EnrollmentStatus("ACTIVE").Valid(), "statuses are lowercase")
	assert.False(t, EnrollmentStatus("").Valid())
}

func TestCanTransition(t *testing.T) {
	statuses := []EnrollmentStatus{
		EnrollmentStatusActive, EnrollmentStatusInactive,
		EnrollmentStatusTransferred, EnrollmentStatusGraduated,
	}
	for _, from := range statuses {
		for _, to := range statuses {
			assert.True(t, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
	assert.False(t, CanTransition(EnrollmentStatusActive, EnrollmentStatus("unknown")))
	assert.False(t, CanTransition(EnrollmentStatus("unknown"), EnrollmentStatusActive))
}
