package scheduler

import (
	"testing"
	"time"

	"github.com/shaiso/Flowgrid/internal/domain"
)

func TestNextDue_Interval(t *testing.T) {
	sched := &domain.Schedule{IntervalSec: 300, Timezone: "UTC"}
	from := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	next, err := NextDue(sched, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := from.Add(5 * time.Minute); !next.Equal(want) {
		t.Errorf("expected %s, got %s", want, next)
	}
}

func TestNextDue_CronInTimezone(t *testing.T) {
	// Ежедневно в 09:30 по Нью-Йорку (открытие биржи).
	sched := &domain.Schedule{CronExpr: "30 9 * * *", Timezone: "America/New_York"}
	from := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC) // 07:00 в NY

	next, err := NextDue(sched, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loc, _ := time.LoadLocation("America/New_York")
	local := next.In(loc)
	if local.Hour() != 9 || local.Minute() != 30 {
		t.Errorf("expected 09:30 local, got %s", local)
	}
	if next.Location() != time.UTC {
		t.Errorf("next due must be stored in UTC, got %s", next.Location())
	}
}

func TestNextDue_InvalidTimezoneFallsBackToUTC(t *testing.T) {
	sched := &domain.Schedule{CronExpr: "0 12 * * *", Timezone: "Not/AZone"}
	from := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	next, err := NextDue(sched, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC); !next.Equal(want) {
		t.Errorf("expected %s, got %s", want, next)
	}
}

func TestNextDue_NeitherCronNorInterval(t *testing.T) {
	if _, err := NextDue(&domain.Schedule{}, time.Now()); err == nil {
		t.Fatal("expected error for schedule without cron or interval")
	}
}

func TestValidateCronExpr(t *testing.T) {
	if err := ValidateCronExpr("*/5 * * * *"); err != nil {
		t.Errorf("valid expression rejected: %v", err)
	}
	if err := ValidateCronExpr("61 * * * *"); err == nil {
		t.Error("expected error for minute out of range")
	}
}
