package scheduler

import (
	"strings"
	"time"
)

// fiveYears bounds how far into the future CronExpression.Next will
// search before giving up. Bounding by calendar distance rather than an
// iteration counter keeps the guarantee independent of how the search
// itself is implemented.
const fiveYears = 5

// CronExpression is an immutable, parsed 6-field cron pattern: second,
// minute, hour, day-of-month, month, day-of-week. It is a pure value —
// safe to share across goroutines and triggers.
type CronExpression struct {
	raw                                             string
	second, minute, hour, dayOfMonth, month, dayOfWeek *cronField
}

// ParseCronExpression parses a whitespace-separated 6-field cron
// expression: "second minute hour day-of-month month day-of-week".
// Each field is one of "*", "?" (day-of-month/day-of-week only), a
// comma-list of integers or "a-b" ranges, optionally suffixed with
// "/step". Day-of-week accepts 0-7 with 7 aliased to 0 (Sunday).
func ParseCronExpression(expr string) (*CronExpression, error) {
	fields := strings.Fields(expr)
	if len(fields) != 6 {
		return nil, &InvalidCronExpressionError{
			Expression: expr,
			Reason:     "expected 6 fields (second minute hour day-of-month month day-of-week)",
		}
	}

	second, err := parseCronField(fields[0], 0, 59, false, false)
	if err != nil {
		return nil, annotateCronErr(err, expr)
	}
	minute, err := parseCronField(fields[1], 0, 59, false, false)
	if err != nil {
		return nil, annotateCronErr(err, expr)
	}
	hour, err := parseCronField(fields[2], 0, 23, false, false)
	if err != nil {
		return nil, annotateCronErr(err, expr)
	}
	dom, err := parseCronField(fields[3], 1, 31, true, false)
	if err != nil {
		return nil, annotateCronErr(err, expr)
	}
	month, err := parseCronField(fields[4], 1, 12, false, false)
	if err != nil {
		return nil, annotateCronErr(err, expr)
	}
	dow, err := parseCronField(fields[5], 0, 7, true, true)
	if err != nil {
		return nil, annotateCronErr(err, expr)
	}

	return &CronExpression{
		raw:        expr,
		second:     second,
		minute:     minute,
		hour:       hour,
		dayOfMonth: dom,
		month:      month,
		dayOfWeek:  dow,
	}, nil
}

func annotateCronErr(err error, expr string) error {
	if ice, ok := err.(*InvalidCronExpressionError); ok && ice.Expression == "" {
		ice.Expression = expr
	}
	return err
}

// String returns the original, unparsed expression.
func (c *CronExpression) String() string { return c.raw }

// matches reports whether t's wall-clock components, read in t's own
// location, satisfy every field.
func (c *CronExpression) matches(t time.Time) bool {
	return c.second.contains(t.Second()) &&
		c.minute.contains(t.Minute()) &&
		c.hour.contains(t.Hour()) &&
		c.dayOfMonth.contains(t.Day()) &&
		c.month.contains(int(t.Month())) &&
		c.dayOfWeek.contains(int(t.Weekday()))
}

// Next returns the smallest instant strictly greater than after,
// expressed in zone, whose wall-clock components all lie in this
// expression's allowed sets. It returns a *SchedulerError if no match
// occurs within five years of after.
//
// Next is a pure function of (after, zone, c): calling it twice with the
// same arguments yields the same instant, and advancing by repeatedly
// feeding the result back in strictly increases the instant each time.
func (c *CronExpression) Next(after time.Time, zone *time.Location) (time.Time, error) {
	if zone == nil {
		zone = time.UTC
	}
	t := after.In(zone).Truncate(time.Second).Add(time.Second)
	limit := after.In(zone).AddDate(fiveYears, 0, 0)
	// advance moves t to next, or, when time.Date normalized next out of a
	// DST gap to an instant not after t, to the first wall-clock hour after t.
	advance := func(next time.Time) time.Time {
		if next.After(t) {
			return next
		}
		n := t.Add(time.Hour)
		return time.Date(n.Year(), n.Month(), n.Day(), n.Hour(), 0, 0, 0, zone)
	}

	for !t.After(limit) {
		if !c.month.contains(int(t.Month())) {
			t = time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, zone)
			continue
		}
		if !c.dayOfMonth.contains(t.Day()) || !c.dayOfWeek.contains(int(t.Weekday())) {
			t = advance(time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, zone))
			continue
		}
		if !c.hour.contains(t.Hour()) {
			t = advance(time.Date(t.Year(), t.Month(), t.Day(), t.Hour()+1, 0, 0, 0, zone))
			continue
		}
		if !c.minute.contains(t.Minute()) {
			t = advance(time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute()+1, 0, 0, zone))
			continue
		}
		if !c.second.contains(t.Second()) {
			t = t.Add(time.Second)
			continue
		}
		return t, nil
	}

	return time.Time{}, &SchedulerError{
		Op:     "cron.next",
		Reason: "no match found for expression " + strQuote(c.raw) + " within five years",
	}
}

func strQuote(s string) string { return "\"" + s + "\"" }
