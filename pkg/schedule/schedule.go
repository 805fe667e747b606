// Package schedule evaluates 5-field cron expressions in UTC.
package schedule

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Sentinel errors.
var (
	// ErrInvalidSchedule is returned when an expression is not valid cron syntax.
	ErrInvalidSchedule = errors.New("schedule: invalid cron expression")

	// ErrNoTrigger is returned when a schedule never fires (e.g. "0 0 30 2 *").
	ErrNoTrigger = errors.New("schedule: no upcoming trigger")
)

// Error carries the expression that failed to parse.
type Error struct {
	Expr string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("schedule: invalid cron expression %q: %v", e.Expr, e.Err)
}

// Unwrap makes errors.Is(err, ErrInvalidSchedule) hold.
func (e *Error) Unwrap() []error {
	return []error{ErrInvalidSchedule, e.Err}
}

// Standard fields plus @hourly style descriptors. Seconds are not accepted.
var parser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Schedule is a parsed cron expression.
type Schedule struct {
	expr  string
	sched cron.Schedule
}

// Parse validates and parses expr.
func Parse(expr string) (*Schedule, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return nil, &Error{Expr: expr, Err: errors.New("empty expression")}
	}
	// @every is an interval, not a cron expression.
	if strings.HasPrefix(trimmed, "@every") {
		return nil, &Error{Expr: expr, Err: errors.New("@every is not supported")}
	}
	// Evaluation is always UTC.
	if strings.HasPrefix(trimmed, "TZ=") || strings.HasPrefix(trimmed, "CRON_TZ=") {
		return nil, &Error{Expr: expr, Err: errors.New("time zone prefixes are not supported")}
	}
	s, err := parser.Parse(sundayAsZero(trimmed))
	if err != nil {
		return nil, &Error{Expr: expr, Err: err}
	}
	return &Schedule{expr: trimmed, sched: s}, nil
}

// sundayAsZero rewrites 7 in the day-of-week field to 0, which is the only
// Sunday the parser knows. Ranges ending in 7 are expanded to a list.
func sundayAsZero(expr string) string {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return expr
	}
	parts := strings.Split(fields[4], ",")
	for i, part := range parts {
		parts[i] = sundayPart(part)
	}
	fields[4] = strings.Join(parts, ",")
	return strings.Join(fields, " ")
}

// sundayPart handles one list element: "7", "5-7" or "1-7/2".
// Anything it does not understand is returned unchanged for the parser to judge.
func sundayPart(part string) string {
	rng, stepText, hasStep := strings.Cut(part, "/")
	loText, hiText, hasRange := strings.Cut(rng, "-")
	lo, err := strconv.Atoi(loText)
	if err != nil {
		return part
	}
	hi := lo
	if hasRange {
		if hi, err = strconv.Atoi(hiText); err != nil {
			return part
		}
	}
	if lo != 7 && hi != 7 {
		return part
	}
	if lo > hi || lo < 0 {
		return part
	}
	step := 1
	if hasStep {
		if step, err = strconv.Atoi(stepText); err != nil || step <= 0 {
			return part
		}
		if !hasRange {
			hi = 7
		}
	}

	var days []int
	for d := lo; d <= hi; d += step {
		days = append(days, d%7)
	}
	slices.Sort(days)
	days = slices.Compact(days)

	out := make([]string, len(days))
	for i, d := range days {
		out[i] = strconv.Itoa(d)
	}
	return strings.Join(out, ",")
}

// Valid reports whether expr parses.
func Valid(expr string) bool {
	_, err := Parse(expr)
	return err == nil
}

// String returns the normalized expression.
func (s *Schedule) String() string {
	return s.expr
}

// Next returns the first trigger strictly after now, in UTC.
// It returns the zero time if the schedule never fires.
func (s *Schedule) Next(now time.Time) time.Time {
	next := s.sched.Next(now.UTC())
	if next.IsZero() {
		return next
	}
	return next.UTC()
}

// NextTrigger parses expr and returns its first trigger after now.
func NextTrigger(expr string, now time.Time) (time.Time, error) {
	s, err := Parse(expr)
	if err != nil {
		return time.Time{}, err
	}
	next := s.Next(now)
	if next.IsZero() {
		return next, fmt.Errorf("%w: %q", ErrNoTrigger, expr)
	}
	return next, nil
}

// Iterator walks the trigger times of a schedule one at a time.
// Each trigger is computed from the previous one, not from the wall clock,
// so a slow cycle is followed immediately by the trigger it overran.
type Iterator struct {
	sched *Schedule
	last  time.Time
}

// NewIterator starts iterating after start.
func NewIterator(s *Schedule, start time.Time) *Iterator {
	return &Iterator{sched: s, last: start.UTC()}
}

// Next advances to and returns the following trigger.
func (it *Iterator) Next() (time.Time, error) {
	next := it.sched.Next(it.last)
	if next.IsZero() {
		return next, fmt.Errorf("%w: %q", ErrNoTrigger, it.sched.expr)
	}
	it.last = next
	return next, nil
}

// Last returns the most recently computed trigger, or the start time.
func (it *Iterator) Last() time.Time {
	return it.last
}
