package models

import (
	"errors"
	"testing"
	"time"
)

func TestCohort_ValidateDates(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	jun := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	c := Cohort{StartDate: jan, EndDate: jun}
	if err := c.ValidateDates(); err != nil {
		t.Fatalf("valid range rejected: %v", err)
	}

	c = Cohort{StartDate: jun, EndDate: jan}
	if err := c.ValidateDates(); !errors.Is(err, ErrInvalidDateRange) {
		t.Fatalf("swapped dates should fail, got %v", err)
	}

	c = Cohort{StartDate: jan, EndDate: jan}
	if err := c.ValidateDates(); err == nil {
		t.Fatalf("equal dates should fail")
	}
}

func TestNotificationPreferences_Defaults(t *testing.T) {
	p := DefaultNotificationPreferences()
	for _, typ := range []NotificationType{NotificationProjectStatus, NotificationNewComment, NotificationNewAssignment, NotificationNewSubmission} {
		if !p.EmailEnabled(typ) || !p.InAppEnabled(typ) {
			t.Fatalf("%s should be enabled by default", typ)
		}
	}
	if p.EmailEnabled("digest") {
		t.Fatalf("unknown type must be disabled")
	}
}
