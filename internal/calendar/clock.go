package calendar

import (
	"fmt"
	"sync"
	"time"

	"github.com/julianstephens/daystreak/internal/constants"
)

// Clock supplies "now" in the single local calendar in effect.
type Clock interface {
	Now() time.Time
}

// LoadLocation loads a timezone location from an IANA timezone name.
// If the timezone is "Local" or empty, it returns the system's local timezone.
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "" || timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return loc, nil
}

// SystemClock reads the wall clock in a fixed location.
type SystemClock struct {
	Location *time.Location
}

// NewSystemClock returns a clock for the named timezone ("" or "Local" for the system zone).
func NewSystemClock(timezone string) (SystemClock, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return SystemClock{}, err
	}
	return SystemClock{Location: loc}, nil
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// Today returns the current day-key of clock.
func Today(clock Clock) string {
	return DayKey(clock.Now())
}

// FixedClock is a settable clock for tests and replays.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock returns a clock frozen at t.
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{now: t}
}

// NewFixedClockOn returns a clock frozen at 09:00 UTC on day-key key.
func NewFixedClockOn(key string) *FixedClock {
	d, err := time.Parse(constants.DateFormat, key)
	if err != nil {
		panic(fmt.Sprintf("calendar: bad fixed clock day %q", key))
	}
	return NewFixedClock(d.Add(9 * time.Hour))
}

func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// AdvanceDays moves the clock forward by n calendar days.
func (c *FixedClock) AdvanceDays(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.AddDate(0, 0, n)
}
