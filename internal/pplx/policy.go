package pplx

import (
	"fmt"
	"strings"
	"time"
)

// The site offers no events for anything we wait on, so every stage is a
// sleep-and-repoll loop. Each loop's thresholds live in a policy struct so
// tests can shrink the durations without touching the logic.

// TypingPolicy governs detection of the composer's typing animation
// settling on the full prompt text.
type TypingPolicy struct {
	Interval      time.Duration // poll spacing
	Ceiling       time.Duration // hard cap on the whole wait
	StallAfter    time.Duration // no length growth for this long counts as a stall
	StableSamples int           // consecutive unchanged samples meaning "settled"
	CompleteRatio float64       // settled text must reach this fraction of expected
	StallRatio    float64       // a stalled text this complete is accepted anyway
	FloorRatio    float64       // below this at the ceiling the operation fails
}

// GenerationPolicy governs waiting for the answer generation indicator to
// disappear. Hitting the ceiling is logged, not fatal.
type GenerationPolicy struct {
	Interval time.Duration
	Ceiling  time.Duration
}

// ScrollPolicy governs the measure-scroll-remeasure loop that hunts for the
// true bottom of a lazily loading page.
type ScrollPolicy struct {
	MaxRounds    int
	StableRounds int
	Pause        time.Duration
}

// LocatePolicy governs retried control lookups with pauses that grow per
// attempt.
type LocatePolicy struct {
	Attempts int
	Pause    time.Duration
}

// ClipboardPolicy governs re-reading the clipboard after the copy click.
type ClipboardPolicy struct {
	Attempts int
	Pause    time.Duration
}

// Policies bundles every poll loop's tuning in one place.
type Policies struct {
	Typing     TypingPolicy
	Generation GenerationPolicy
	Scroll     ScrollPolicy
	Copy       LocatePolicy
	Mode       LocatePolicy
	Submit     LocatePolicy
	Clipboard  ClipboardPolicy
}

// DefaultPolicies returns the production thresholds.
func DefaultPolicies() Policies {
	return Policies{
		Typing: TypingPolicy{
			Interval:      200 * time.Millisecond,
			Ceiling:       300 * time.Second,
			StallAfter:    60 * time.Second,
			StableSamples: 6,
			CompleteRatio: 0.95,
			StallRatio:    0.80,
			FloorRatio:    0.50,
		},
		Generation: GenerationPolicy{
			Interval: 5 * time.Second,
			Ceiling:  450 * time.Second,
		},
		Scroll: ScrollPolicy{
			MaxRounds:    10,
			StableRounds: 3,
			Pause:        3 * time.Second,
		},
		Copy: LocatePolicy{
			Attempts: 5,
			Pause:    3 * time.Second,
		},
		Mode: LocatePolicy{
			Attempts: 3,
			Pause:    time.Second,
		},
		Submit: LocatePolicy{
			Attempts: 3,
			Pause:    200 * time.Millisecond,
		},
		Clipboard: ClipboardPolicy{
			Attempts: 3,
			Pause:    time.Second,
		},
	}
}

// Wait polls read until the observed text is judged complete against the
// expected length. A sample counts toward stability when it matches the
// previous one; six stable samples at >=95% of the expected length means
// done. Stable but short resets the counter (the animation is just slow).
// Sixty seconds without length growth accepts >=80%. At the ceiling a final
// read below the floor fails the operation; anything above it proceeds
// optimistically.
func (p TypingPolicy) Wait(expectedLen int, read func() (string, error)) error {
	start := time.Now()
	lastText := ""
	lastProgress := start
	stable := 0

	for time.Since(start) < p.Ceiling {
		current, err := read()
		if err != nil {
			// DOM re-render mid-read; next tick re-finds the element
			time.Sleep(p.Interval)
			continue
		}
		current = strings.TrimSpace(current)

		if current == lastText {
			stable++
			if stable >= p.StableSamples {
				if meets(len(current), expectedLen, p.CompleteRatio) {
					return nil
				}
				if len(current) > 0 {
					stable = 0
				}
			}
		} else {
			stable = 0
			lastText = current
			if len(current) > 0 {
				lastProgress = time.Now()
			}
		}

		if time.Since(lastProgress) > p.StallAfter {
			if meets(len(current), expectedLen, p.StallRatio) {
				return nil
			}
			lastProgress = time.Now()
		}

		time.Sleep(p.Interval)
	}

	// Ceiling breached: one last check before giving up.
	final, err := read()
	if err != nil {
		return fmt.Errorf("cannot verify text after %s: %w", p.Ceiling, ErrTypingIncomplete)
	}
	if got := len(strings.TrimSpace(final)); !meets(got, expectedLen, p.FloorRatio) {
		return fmt.Errorf("composer holds %d/%d characters after %s: %w",
			got, expectedLen, p.Ceiling, ErrTypingIncomplete)
	}
	return nil
}

// WaitGone polls probe until it reports the watched indicator absent.
// Returns false if the ceiling was reached with the indicator still there.
func (p GenerationPolicy) WaitGone(probe func() (bool, error)) bool {
	start := time.Now()
	for time.Since(start) < p.Ceiling {
		present, err := probe()
		if err == nil && !present {
			return true
		}
		time.Sleep(p.Interval)
	}
	return false
}

// ToBottom runs the measure-scroll-remeasure loop. The document height must
// hold still for StableRounds consecutive rounds before the bottom counts
// as reached. Returns false when MaxRounds ran out first.
func (p ScrollPolicy) ToBottom(measure func() int, scroll func()) bool {
	stable := 0
	for round := 0; round < p.MaxRounds; round++ {
		before := measure()
		scroll()
		time.Sleep(p.Pause)
		if measure() == before {
			stable++
			if stable >= p.StableRounds {
				return true
			}
		} else {
			stable = 0
		}
	}
	return false
}

// Read retries the clipboard until it yields non-empty text.
func (p ClipboardPolicy) Read(read func() (string, error)) (string, error) {
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		text, err := read()
		if err == nil && text != "" {
			return text, nil
		}
		if attempt < p.Attempts {
			time.Sleep(p.Pause)
		}
	}
	return "", fmt.Errorf("clipboard stayed empty after %d attempts: %w",
		p.Attempts, ErrExtractionFailed)
}

// meets compares in float space; truncating the threshold to an int would
// admit texts one character shorter than the fraction allows.
func meets(got, expected int, r float64) bool {
	return float64(got) >= float64(expected)*r
}
