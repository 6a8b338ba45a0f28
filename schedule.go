package tokenz

import (
	"context"
	"fmt"
	"time"

	"github.com/zoobzio/clockz"
)

// NextOccurrenceFunc returns the wall-clock time at which the next token
// should signal. ok is false when there is no next occurrence.
type NextOccurrenceFunc func(ctx context.Context) (next time.Time, ok bool, err error)

// NewScheduledProducer creates a DelayProducer that signals each token at
// the time returned by next. Times in the past signal immediately. ctx
// cancels every pending wait.
func NewScheduledProducer(ctx context.Context, next NextOccurrenceFunc) *DelayProducer {
	if next == nil {
		panic("tokenz: nil next occurrence func")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var p *DelayProducer
	p = NewDelayProducer(func(c context.Context) (DelayInfo, error) {
		at, ok, err := next(c)
		if err != nil {
			return DelayInfo{}, err
		}
		if !ok {
			return DelayInfo{}, ErrNoOccurrence
		}
		return DelayInfo{
			Delay:  at.Sub(p.now()),
			Cancel: ctx.Done(),
		}, nil
	})
	return p
}

func (p *DelayProducer) now() time.Time {
	p.mu.Lock()
	clock := p.clock
	p.mu.Unlock()
	return clock.Now()
}

// Schedule determines when a periodic token should signal.
type Schedule interface {
	Next(from time.Time) time.Time
	String() string
}

// NextFromSchedule adapts s to a NextOccurrenceFunc, computing the next
// occurrence from clock's current time.
func NextFromSchedule(s Schedule, clock clockz.Clock) NextOccurrenceFunc {
	if clock == nil {
		clock = clockz.RealClock
	}
	return func(context.Context) (time.Time, bool, error) {
		return s.Next(clock.Now()), true, nil
	}
}

type intervalSchedule struct {
	every time.Duration
}

func (s intervalSchedule) Next(from time.Time) time.Time {
	return from.Add(s.every)
}

func (s intervalSchedule) String() string {
	return fmt.Sprintf("every %v", s.every)
}

type dailySchedule struct {
	hour   int
	minute int
}

func (s dailySchedule) Next(from time.Time) time.Time {
	next := time.Date(
		from.Year(), from.Month(), from.Day(),
		s.hour, s.minute, 0, 0, from.Location(),
	)
	if !next.After(from) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (s dailySchedule) String() string {
	return fmt.Sprintf("daily at %02d:%02d", s.hour, s.minute)
}

type weeklySchedule struct {
	weekday time.Weekday
	hour    int
	minute  int
}

func (s weeklySchedule) Next(from time.Time) time.Time {
	daysUntil := (int(s.weekday) - int(from.Weekday()) + 7) % 7

	next := from.AddDate(0, 0, daysUntil)
	next = time.Date(
		next.Year(), next.Month(), next.Day(),
		s.hour, s.minute, 0, 0, next.Location(),
	)
	if !next.After(from) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

func (s weeklySchedule) String() string {
	return fmt.Sprintf("weekly on %s at %02d:%02d", s.weekday, s.hour, s.minute)
}

type monthlySchedule struct {
	day    int
	hour   int
	minute int
}

func (s monthlySchedule) Next(from time.Time) time.Time {
	year, month := from.Year(), from.Month()

	// Clamp to the last day of short months.
	day := min(s.day, daysInMonth(year, month))
	next := time.Date(year, month, day, s.hour, s.minute, 0, 0, from.Location())
	if next.After(from) {
		return next
	}

	if month == time.December {
		year++
		month = time.January
	} else {
		month++
	}
	day = min(s.day, daysInMonth(year, month))
	return time.Date(year, month, day, s.hour, s.minute, 0, 0, from.Location())
}

func (s monthlySchedule) String() string {
	return fmt.Sprintf("monthly on day %d at %02d:%02d", s.day, s.hour, s.minute)
}

// Every signals at fixed intervals.
func Every(d time.Duration) Schedule {
	return intervalSchedule{every: d}
}

// Daily signals once a day at hour:minute.
func Daily(hour, minute int) Schedule {
	return dailySchedule{hour: hour, minute: minute}
}

// Weekly signals once a week on weekday at hour:minute.
func Weekly(weekday time.Weekday, hour, minute int) Schedule {
	return weeklySchedule{weekday: weekday, hour: hour, minute: minute}
}

// Monthly signals once a month on day at hour:minute. Days past the end of
// a month fall on its last day.
func Monthly(day, hour, minute int) Schedule {
	return monthlySchedule{day: day, hour: hour, minute: minute}
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
