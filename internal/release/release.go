// Package release computes when the scheduling service opens a given date's
// quota and waits for that instant.
package release

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"registration-bot/internal/clock"
	"registration-bot/internal/parse"
)

// DateLayout is the service's date format for duty dates.
const DateLayout = "2006-01-02"

// Lead is how early polling starts, absorbing login and network latency
// without wasting request quota on premature polls.
const Lead = 30 * time.Second

// At computes the absolute release timestamp for dutyDate: the day's quota
// opens AppointDays days earlier, at the published refresh time-of-day.
func At(dutyDate string, win parse.ReleaseWindow) (time.Time, error) {
	day, err := time.ParseInLocation(DateLayout, dutyDate, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid duty date %q: %w", dutyDate, err)
	}
	refresh := day.Add(time.Duration(win.RefreshHour)*time.Hour + time.Duration(win.RefreshMinute)*time.Minute)
	return refresh.AddDate(0, 0, -win.AppointDays), nil
}

// DefaultDutyDate returns the furthest bookable date: today plus the
// booking window.
func DefaultDutyDate(now time.Time, win parse.ReleaseWindow) string {
	return now.AddDate(0, 0, win.AppointDays).Format(DateLayout)
}

// Waiter suspends the run until shortly before a release instant.
type Waiter struct {
	clock  clock.Clock
	logger *zap.Logger
}

// NewWaiter creates a Waiter on the given clock.
func NewWaiter(c clock.Clock, logger *zap.Logger) *Waiter {
	return &Waiter{clock: c, logger: logger}
}

// WaitUntil sleeps until Lead before release. If fewer than Lead seconds
// remain, or release is already past, it returns immediately.
func (w *Waiter) WaitUntil(release time.Time) {
	remaining := release.Sub(w.clock.Now()) - Lead
	if remaining <= 0 {
		return
	}
	w.logger.Info("waiting for release",
		zap.Time("release", release),
		zap.Duration("sleep", remaining))
	w.clock.Sleep(remaining)
}
