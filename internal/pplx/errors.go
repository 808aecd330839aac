package pplx

import "errors"

// Failure taxonomy for the automation pipeline. Everything collapses to a
// 500 {detail} at the HTTP boundary, but wrapped sentinels keep the kinds
// distinguishable in logs and tests.
var (
	// ErrElementNotFound means a lookup exhausted its retries.
	ErrElementNotFound = errors.New("element not found")

	// ErrActionFailed means a click or keystroke raised after all fallbacks.
	ErrActionFailed = errors.New("action failed")

	// ErrTypingIncomplete means the typing ceiling was hit with the composer
	// holding less than the acceptable fraction of the prompt.
	ErrTypingIncomplete = errors.New("typing incomplete")

	// ErrExtractionFailed means no copy control, a failed click, or an empty
	// clipboard after all attempts.
	ErrExtractionFailed = errors.New("extraction failed")
)
