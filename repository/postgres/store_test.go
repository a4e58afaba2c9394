package postgres

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/repository"
)

// dryRunDB dựng câu SQL mà không cần Postgres thật.
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(pgdriver.New(pgdriver.Config{DSN: "host=localhost user=test dbname=test sslmode=disable"}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open dry-run db: %v", err)
	}
	return db
}

func TestTranslate(t *testing.T) {
	cases := []struct {
		in   error
		want error
	}{
		{gorm.ErrRecordNotFound, repository.ErrNotFound},
		{fmt.Errorf("create user: %w", gorm.ErrDuplicatedKey), repository.ErrDuplicate},
		{gorm.ErrDuplicatedKey, repository.ErrDuplicate},
	}
	for _, c := range cases {
		if got := translate(c.in); !errors.Is(got, c.want) {
			t.Errorf("translate(%v) = %v, want %v", c.in, got, c.want)
		}
	}
	if translate(nil) != nil {
		t.Error("translate(nil) should be nil")
	}
	other := errors.New("boom")
	if translate(other) != other {
		t.Error("unknown errors must pass through")
	}
}

func TestProjectQuery_ReviewerScopeIsGrouped(t *testing.T) {
	db := dryRunDB(t)
	reviewer := uuid.New()
	f := repository.ProjectFilter{
		ReviewerID: &reviewer,
		CohortIDs:  []uuid.UUID{uuid.New()},
		Status:     models.ProjectPending,
		Tag:        "go",
	}
	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var out []models.Project
		return projectQuery(tx, f).Find(&out)
	})

	for _, want := range []string{"project_reviewers", "cohort_students", "status = 'pending'", `tags @> '["go"]'::jsonb`} {
		if !strings.Contains(sql, want) {
			t.Fatalf("query missing %q:\n%s", want, sql)
		}
	}
	open := strings.Index(sql, "(id IN (SELECT")
	or := strings.Index(sql, " OR student_id IN (SELECT")
	status := strings.Index(sql, "status = 'pending'")
	if open < 0 || or < open || status < or {
		t.Fatalf("reviewer scope must be one OR group before the status filter:\n%s", sql)
	}
	if !strings.Contains(sql[or:status], ")) AND") {
		t.Fatalf("status filter must sit outside the OR group:\n%s", sql)
	}
}

func TestIndexes(t *testing.T) {
	cache := &sync.Map{}

	assignment, err := schema.Parse(&models.Assignment{}, cache, schema.NamingStrategy{})
	if err != nil {
		t.Fatalf("parse assignment: %v", err)
	}
	idx := assignment.LookIndex("idx_active_assignment")
	if idx == nil || idx.Class != "UNIQUE" || idx.Where != "is_active = true" || len(idx.Fields) != 3 {
		t.Fatalf("idx_active_assignment = %+v", idx)
	}

	notification, err := schema.Parse(&models.Notification{}, cache, schema.NamingStrategy{})
	if err != nil {
		t.Fatalf("parse notification: %v", err)
	}
	idx = notification.LookIndex("idx_event_recipient")
	if idx == nil || idx.Class != "UNIQUE" || len(idx.Fields) != 2 {
		t.Fatalf("idx_event_recipient = %+v", idx)
	}
}
