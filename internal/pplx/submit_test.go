package pplx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastLocateClient() *Client {
	return &Client{policies: Policies{
		Mode:   LocatePolicy{Attempts: 3, Pause: 0},
		Submit: LocatePolicy{Attempts: 3, Pause: 0},
	}}
}

type actionLog struct {
	toggleClicks int
	submitClicks int
	retypes      int
	ctrlEnters   int
	plainEnters  int
}

func countingActions(l *actionLog) submitActions {
	return submitActions{
		clickToggle: func(Control) error { l.toggleClicks++; return nil },
		clickSubmit: func(Control) error { l.submitClicks++; return nil },
		retype:      func() error { l.retypes++; return nil },
		ctrlEnter:   func() error { l.ctrlEnters++; return nil },
		plainEnter:  func() error { l.plainEnters++; return nil },
	}
}

func TestSubmissionSucceedsWithoutResearchToggle(t *testing.T) {
	c := fastLocateClient()

	// Research mode requested, but the toggle never renders
	find := mapFinder(map[string][]Control{
		submitButtonSelector: {fakeControl{id: "send", visible: true, enabled: true}},
	})

	var rec actionLog
	err := c.finishSubmission(true, find, countingActions(&rec))

	require.NoError(t, err, "a missing toggle must not fail the request")
	assert.Equal(t, 0, rec.toggleClicks)
	assert.Equal(t, 1, rec.submitClicks)
}

func TestSubmissionSucceedsWhenToggleClickFails(t *testing.T) {
	c := fastLocateClient()
	find := mapFinder(map[string][]Control{
		researchToggleSelector: {fakeControl{id: "toggle", visible: true, enabled: true}},
		submitButtonSelector:   {fakeControl{id: "send", visible: true, enabled: true}},
	})

	var rec actionLog
	act := countingActions(&rec)
	act.clickToggle = func(Control) error { return assert.AnError }

	err := c.finishSubmission(true, find, act)

	require.NoError(t, err)
	assert.Equal(t, 1, rec.submitClicks)
}

func TestSubmissionSelectsResearchMode(t *testing.T) {
	c := fastLocateClient()
	find := mapFinder(map[string][]Control{
		researchToggleSelector: {fakeControl{id: "toggle", visible: true, enabled: true}},
		submitButtonSelector:   {fakeControl{id: "send", visible: true, enabled: true}},
	})

	var rec actionLog
	err := c.finishSubmission(true, find, countingActions(&rec))

	require.NoError(t, err)
	assert.Equal(t, 1, rec.toggleClicks)
	assert.Equal(t, 1, rec.submitClicks)
}

func TestSubmissionSkipsToggleInDefaultMode(t *testing.T) {
	c := fastLocateClient()
	find := mapFinder(map[string][]Control{
		researchToggleSelector: {fakeControl{id: "toggle", visible: true, enabled: true}},
		submitButtonSelector:   {fakeControl{id: "send", visible: true, enabled: true}},
	})

	var rec actionLog
	err := c.finishSubmission(false, find, countingActions(&rec))

	require.NoError(t, err)
	assert.Equal(t, 0, rec.toggleClicks)
}

func TestSubmissionFallsBackToAriaLabel(t *testing.T) {
	c := fastLocateClient()
	find := mapFinder(map[string][]Control{
		submitLabelSelector: {fakeControl{id: "labelled", visible: true, enabled: true}},
	})

	var rec actionLog
	err := c.finishSubmission(false, find, countingActions(&rec))

	require.NoError(t, err)
	assert.Equal(t, 1, rec.submitClicks)
	assert.Equal(t, 0, rec.ctrlEnters)
}

func TestSubmissionFallsBackToCtrlEnter(t *testing.T) {
	c := fastLocateClient()
	find := mapFinder(map[string][]Control{})

	var rec actionLog
	err := c.finishSubmission(false, find, countingActions(&rec))

	require.NoError(t, err)
	assert.Equal(t, 1, rec.retypes, "composer must be re-checked before a keyboard submit")
	assert.Equal(t, 1, rec.ctrlEnters)
	assert.Equal(t, 0, rec.plainEnters)
}

func TestSubmissionFallsBackToPlainEnter(t *testing.T) {
	c := fastLocateClient()
	find := mapFinder(map[string][]Control{})

	var rec actionLog
	act := countingActions(&rec)
	act.retype = func() error { return assert.AnError }

	err := c.finishSubmission(false, find, act)

	require.NoError(t, err)
	assert.Equal(t, 0, rec.ctrlEnters, "Ctrl+Enter is skipped when the composer is unreachable")
	assert.Equal(t, 1, rec.plainEnters)
}

func TestSubmissionFailsWhenAllMethodsExhausted(t *testing.T) {
	c := fastLocateClient()
	find := mapFinder(map[string][]Control{
		submitButtonSelector: {fakeControl{id: "send", visible: true, enabled: true}},
	})

	var rec actionLog
	act := countingActions(&rec)
	act.clickSubmit = func(Control) error { return assert.AnError }
	act.ctrlEnter = func() error { return assert.AnError }
	act.plainEnter = func() error { return assert.AnError }

	err := c.finishSubmission(false, find, act)

	require.ErrorIs(t, err, ErrActionFailed)
	assert.Equal(t, 1, rec.retypes)
}
