package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		allowed  bool
	}{
		{StatusSubmitted, StatusAssigned, true},
		{StatusSubmitted, StatusResolved, true},
		{StatusSubmitted, StatusRejected, true},
		{StatusAssigned, StatusInProgress, true},
		{StatusAssigned, StatusSubmitted, false},
		{StatusInProgress, StatusUnderReview, true},
		{StatusInProgress, StatusAssigned, false},
		{StatusUnderReview, StatusInProgress, true},
		{StatusUnderReview, StatusResolved, true},
		{StatusResolved, StatusClosed, true},
		{StatusResolved, StatusInProgress, true},
		{StatusResolved, StatusSubmitted, false},
		{StatusClosed, StatusInProgress, false},
		{StatusClosed, StatusResolved, false},
		{StatusRejected, StatusSubmitted, false},
		{StatusRejected, StatusClosed, false},
	}

	for _, tc := range cases {
		assert.Equalf(t, tc.allowed, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestInvalidTransitionError(t *testing.T) {
	err := &InvalidTransitionError{From: StatusClosed, To: StatusInProgress}
	assert.Equal(t, "illegal status transition: closed -> in_progress", err.Error())
}

func TestValidStatus(t *testing.T) {
	for _, s := range []string{
		StatusSubmitted, StatusAssigned, StatusInProgress,
		StatusUnderReview, StatusResolved, StatusClosed, StatusRejected,
	} {
		assert.True(t, ValidStatus(s), s)
	}
	assert.False(t, ValidStatus("escalated"))
	assert.False(t, ValidStatus(""))
}

func TestValidPriorityAndCategory(t *testing.T) {
	assert.True(t, ValidPriority(PriorityCritical))
	assert.False(t, ValidPriority("urgent"))

	assert.True(t, ValidCategory(CategoryHostel))
	assert.False(t, ValidCategory("parking"))
}
