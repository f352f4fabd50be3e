package util

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Housekeeping schedules use the five-field form: minute hour dom month dow.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateCronExpr reports whether expr is a usable housekeeping schedule.
func ValidateCronExpr(expr string) error {
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// NextCronTime is the first run of expr strictly after from, in UTC.
func NextCronTime(expr string, from time.Time) (time.Time, error) {
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return schedule.Next(from.UTC()), nil
}
