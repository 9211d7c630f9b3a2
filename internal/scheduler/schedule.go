package scheduler

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// MaxWeeklyDelay caps the wait computed for weekly schedules.
const MaxWeeklyDelay = 7 * 24 * time.Hour

// Schedule yields the wait before the next firing.
type Schedule interface {
	Delay(now time.Time) time.Duration
	String() string
}

// FixedInterval fires at a constant period.
type FixedInterval time.Duration

func (f FixedInterval) Delay(time.Time) time.Duration {
	return time.Duration(f)
}

func (f FixedInterval) String() string {
	return "every " + time.Duration(f).String()
}

// WeeklyAt fires on one weekday at the top of one hour, local to the clock
// it is given. The delay is recomputed on every firing.
type WeeklyAt struct {
	Hour    int
	Weekday time.Weekday
	expr    cron.Schedule
}

func NewWeeklyAt(hour int, weekday time.Weekday) (WeeklyAt, error) {
	if hour < 0 || hour > 23 || weekday < time.Sunday || weekday > time.Saturday {
		return WeeklyAt{}, fmt.Errorf("invalid weekly schedule: hour %d weekday %d", hour, weekday)
	}
	expr, err := cron.ParseStandard(fmt.Sprintf("0 %d * * %d", hour, weekday))
	if err != nil {
		return WeeklyAt{}, fmt.Errorf("invalid cron schedule: %w", err)
	}
	return WeeklyAt{Hour: hour, Weekday: weekday, expr: expr}, nil
}

func (w WeeklyAt) Delay(now time.Time) time.Duration {
	d := w.expr.Next(now).Sub(now)
	if d > MaxWeeklyDelay {
		d = MaxWeeklyDelay
	}
	return d
}

func (w WeeklyAt) String() string {
	return fmt.Sprintf("weekly on %s at %02d:00", w.Weekday, w.Hour)
}

// MinInterval is the shortest repeat a millisecond schedule can arm;
// fractional values below it are rounded up.
const MinInterval = time.Millisecond

var (
	everyNHours   = regexp.MustCompile(`^0\s+\*/(\d+)\s+\*\s+\*\s+\*$`)
	everyNMinutes = regexp.MustCompile(`^\*/(\d+)\s+\*\s+\*\s+\*\s+\*$`)
	weeklyAtHour  = regexp.MustCompile(`^0\s+(\d{1,2})\s+\*\s+\*\s+(\d)$`)
)

// ResolveSchedule turns a hook schedule expression into a Schedule.
// Accepted forms, tried in order: a positive number of milliseconds,
// "0 */N * * *" (every N hours), "*/N * * * *" (every N minutes) and
// "0 H * * D" (weekly). Anything else is unscheduled.
func ResolveSchedule(expr string) (Schedule, bool) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, false
	}

	if ms, err := strconv.ParseFloat(expr, 64); err == nil {
		if ms <= 0 || math.IsInf(ms, 0) || math.IsNaN(ms) {
			return nil, false
		}
		if ms > float64(math.MaxInt64/int64(time.Millisecond)) {
			return nil, false
		}
		return FixedInterval(max(time.Duration(ms*float64(time.Millisecond)), MinInterval)), true
	}

	if m := everyNHours.FindStringSubmatch(expr); m != nil {
		return positiveInterval(m[1], time.Hour)
	}
	if m := everyNMinutes.FindStringSubmatch(expr); m != nil {
		return positiveInterval(m[1], time.Minute)
	}
	if m := weeklyAtHour.FindStringSubmatch(expr); m != nil {
		hour, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		weekly, err := NewWeeklyAt(hour, time.Weekday(day))
		if err != nil {
			return nil, false
		}
		return weekly, true
	}
	return nil, false
}

func positiveInterval(n string, unit time.Duration) (Schedule, bool) {
	v, err := strconv.Atoi(n)
	if err != nil || v <= 0 {
		return nil, false
	}
	return FixedInterval(time.Duration(v) * unit), true
}
