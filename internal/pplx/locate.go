package pplx

import (
	"fmt"
	"time"
)

// Strategy is one selector in an ordered fallback chain.
type Strategy struct {
	Name     string
	Selector string
}

// Control is the minimal view of a page element the locator needs. Keeping
// it this narrow lets tests fake controls without a browser.
type Control interface {
	Visible() bool
	Enabled() bool
}

// FindFunc returns the controls currently matching a selector. Lookups
// never wait; retrying is the locator's job.
type FindFunc func(selector string) []Control

// locate tries each strategy in order and returns the last visible and
// enabled match of the first strategy that yields one. The last match wins
// because the newest response's controls sit last in document order.
func locate(strategies []Strategy, find FindFunc) (Control, string, bool) {
	for _, s := range strategies {
		var match Control
		for _, c := range find(s.Selector) {
			if c.Visible() && c.Enabled() {
				match = c
			}
		}
		if match != nil {
			return match, s.Name, true
		}
	}
	return nil, "", false
}

// locateWithRetry runs locate up to pol.Attempts times. Pauses grow with
// the attempt number, and nudge (extra scrolling) runs between attempts to
// coax lazily rendered controls into existence.
func locateWithRetry(pol LocatePolicy, strategies []Strategy, find FindFunc, nudge func()) (Control, string, error) {
	for attempt := 1; attempt <= pol.Attempts; attempt++ {
		if attempt > 1 {
			time.Sleep(pol.Pause * time.Duration(attempt-1))
		}
		if c, name, ok := locate(strategies, find); ok {
			return c, name, nil
		}
		if attempt < pol.Attempts && nudge != nil {
			nudge()
		}
	}
	return nil, "", fmt.Errorf("no usable control after %d attempts: %w",
		pol.Attempts, ErrElementNotFound)
}
