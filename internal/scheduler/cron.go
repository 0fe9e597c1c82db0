package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shaiso/Flowgrid/internal/domain"
)

// parser принимает стандартные пятипольные выражения
// (минута час день-месяца месяц день-недели).
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// NextDue вычисляет следующий запуск schedule строго после from.
//
// Cron-выражение считается в timezone schedule (трейдинговые flows
// привязывают расписания к времени биржи), интервал от timezone не
// зависит. Результат всегда в UTC — в нём NextDueAt хранится и
// сравнивается в ListDue.
func NextDue(sched *domain.Schedule, from time.Time) (time.Time, error) {
	from = from.In(location(sched.Timezone))

	switch {
	case sched.IsCron():
		spec, err := parser.Parse(sched.CronExpr)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse cron expression %q: %w", sched.CronExpr, err)
		}
		return spec.Next(from).UTC(), nil

	case sched.IsInterval():
		return from.Add(time.Duration(sched.IntervalSec) * time.Second).UTC(), nil

	default:
		return time.Time{}, fmt.Errorf("schedule has neither cron_expr nor interval_sec")
	}
}

// InitialNextDue — первый запуск нового schedule, от текущего момента.
// Используется API при создании и изменении schedule.
func InitialNextDue(sched *domain.Schedule) (time.Time, error) {
	return NextDue(sched, time.Now())
}

// ValidateCronExpr проверяет cron-выражение до сохранения schedule.
func ValidateCronExpr(expr string) error {
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// location разрешает timezone schedule; пустая или невалидная зона
// считается UTC.
func location(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
