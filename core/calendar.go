package core

import (
	"time"

	"cloud.google.com/go/civil"
)

// Calendar buckets instants into calendar days of a single time zone.
// A day d covers the half-open interval [midnight of d, midnight of d+1) in that zone.
type Calendar struct {
	loc *time.Location
	now func() time.Time
}

// NewCalendar returns a Calendar for loc. An optional clock may be provided (mostly for tests).
func NewCalendar(loc *time.Location, now ...func() time.Time) *Calendar {
	if loc == nil {
		loc = time.Local
	}
	clock := time.Now
	if len(now) > 0 && now[0] != nil {
		clock = now[0]
	}
	return &Calendar{loc: loc, now: clock}
}

func (c *Calendar) Location() *time.Location { return c.loc }

// Now returns the current instant in the calendar's zone.
func (c *Calendar) Now() time.Time { return c.now().In(c.loc) }

// Today returns the calendar day containing Now.
func (c *Calendar) Today() civil.Date { return civil.DateOf(c.Now()) }

// DayOf returns the calendar day containing t.
func (c *Calendar) DayOf(t time.Time) civil.Date { return civil.DateOf(t.In(c.loc)) }

// Bounds returns [start, end) of day d.
func (c *Calendar) Bounds(d civil.Date) (time.Time, time.Time) {
	return d.In(c.loc), d.AddDays(1).In(c.loc)
}

// Window returns the n days ending at (and including) today, oldest first.
func (c *Calendar) Window(n int) []civil.Date {
	if n <= 0 {
		return nil
	}
	today := c.Today()
	days := make([]civil.Date, 0, n)
	for i := n - 1; i >= 0; i-- {
		days = append(days, today.AddDays(-i))
	}
	return days
}
