/*
 * Copyright (c) 2025, the stashbin authors. All rights reserved.
 * See LICENSE for license information.
 */

package timeutil

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

func FormatISO(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func ParseISO(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func NowMillis() int64 {
	return time.Now().UnixMilli()
}

func CvtMilliSecToTime(milliseconds int64) time.Time {
	seconds := milliseconds / 1000
	nanoseconds := (milliseconds % 1000) * 1000000
	return time.Unix(seconds, nanoseconds).UTC()
}

// ParseCronStandard parses a 5-field cron expression.
func ParseCronStandard(scheduleStr string) (cron.Schedule, error) {
	if scheduleStr == "" {
		return nil, fmt.Errorf("invalid input")
	}
	return cron.ParseStandard(scheduleStr)
}

// NextInterval returns the next fire after now plus the seconds between that
// fire and the one following it.
func NextInterval(schedule cron.Schedule, now time.Time) (time.Time, int64) {
	next := schedule.Next(now)
	following := schedule.Next(next)
	return next, int64(following.Sub(next).Seconds())
}
