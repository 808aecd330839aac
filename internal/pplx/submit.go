package pplx

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

const (
	composerSelector       = "div[contenteditable='true']"
	researchToggleSelector = "[data-testid='search-mode-research']"
	submitButtonSelector   = "button[data-testid='submit-button']"
	submitLabelSelector    = "button[aria-label='Submit']"
)

var researchToggleStrategies = []Strategy{
	{Name: "testid", Selector: researchToggleSelector},
}

var submitStrategies = []Strategy{
	{Name: "testid", Selector: submitButtonSelector},
	{Name: "aria-label", Selector: submitLabelSelector},
}

// submitActions are the page gestures the dispatch path performs once a
// lookup has resolved. Lookups themselves run through the locator, so the
// dispatch logic stays independent of rod.
type submitActions struct {
	clickToggle func(Control) error
	clickSubmit func(Control) error
	retype      func() error
	ctrlEnter   func() error
	plainEnter  func() error
}

// findComposer locates the editable input fresh. The page re-renders the
// composer while the typing animation runs, so handles go stale; every
// mutating step re-finds instead of holding on to one.
func findComposer(page *rod.Page) (*rod.Element, error) {
	el, err := page.Timeout(10 * time.Second).Element(composerSelector)
	if err != nil {
		return nil, fmt.Errorf("composer %s: %w", composerSelector, ErrElementNotFound)
	}
	return el, nil
}

// submitPrompt enters the prompt into the composer, waits for the typing
// animation to settle, optionally switches on research mode, and dispatches
// the submission.
func (c *Client) submitPrompt(page *rod.Page, prompt string, useResearchMode bool) error {
	el, err := findComposer(page)
	if err != nil {
		return err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("focus composer: %v: %w", err, ErrActionFailed)
	}
	time.Sleep(500 * time.Millisecond)

	// Re-find before clearing and typing
	el, err = findComposer(page)
	if err != nil {
		return err
	}
	if err := clearComposer(page); err != nil {
		log.Warn("submit: clearing composer failed", "error", err)
	}

	softNewline := func() error {
		return page.KeyActions().Press(input.ShiftLeft).Type(input.Enter).Do()
	}
	if err := typeSegments(prompt, el.Input, softNewline); err != nil {
		return fmt.Errorf("typing prompt: %v: %w", err, ErrActionFailed)
	}

	log.Info("submit: waiting for typing to settle", "chars", len(prompt))
	readBack := func() (string, error) {
		current, err := findComposer(page)
		if err != nil {
			return "", err
		}
		return current.Text()
	}
	if err := c.policies.Typing.Wait(len(prompt), readBack); err != nil {
		return err
	}

	return c.finishSubmission(useResearchMode, rodFinder(page), pageActions(page, prompt))
}

// finishSubmission selects research mode when asked and dispatches the
// submit. A missing or unclickable toggle is not fatal; the query just runs
// in default mode.
func (c *Client) finishSubmission(useResearchMode bool, find FindFunc, act submitActions) error {
	if useResearchMode {
		if c.selectResearchMode(find, act.clickToggle) {
			log.Info("submit: research mode selected")
		} else {
			log.Warn("submit: research mode unavailable, continuing in default mode")
		}
	}
	return c.dispatchSubmit(find, act)
}

// selectResearchMode locates the research toggle through the strategy chain
// and clicks it. Returns false when the toggle never showed up or the click
// failed.
func (c *Client) selectResearchMode(find FindFunc, click func(Control) error) bool {
	toggle, name, err := locateWithRetry(c.policies.Mode, researchToggleStrategies, find, nil)
	if err != nil {
		return false
	}
	log.Debug("submit: research toggle found", "strategy", name)

	if err := click(toggle); err != nil {
		log.Debug("submit: research toggle click failed", "error", err)
		return false
	}
	return true
}

// dispatchSubmit locates the submit button through the strategy chain and
// clicks it, falling back to Ctrl+Enter and then a plain Enter when the
// button cannot be found or clicked.
func (c *Client) dispatchSubmit(find FindFunc, act submitActions) error {
	button, name, err := locateWithRetry(c.policies.Submit, submitStrategies, find, nil)
	if err != nil {
		log.Warn("submit: submit button not found, falling back to keyboard")
	} else {
		log.Debug("submit: submit button found", "strategy", name)
		cerr := act.clickSubmit(button)
		if cerr == nil {
			log.Info("submit: clicked submit button")
			return nil
		}
		log.Warn("submit: submit button click failed, falling back to keyboard", "error", cerr)
	}

	// The composer may have been cleared by a re-render; re-type before the
	// keyboard submit so we never send an empty query.
	if rerr := act.retype(); rerr != nil {
		log.Warn("submit: composer re-check failed", "error", rerr)
	} else if kerr := act.ctrlEnter(); kerr == nil {
		log.Info("submit: sent Ctrl+Enter")
		return nil
	}

	// Last resort
	if kerr := act.plainEnter(); kerr == nil {
		log.Info("submit: sent Enter")
		return nil
	}

	return fmt.Errorf("submit failed, all methods exhausted: %w", ErrActionFailed)
}

// pageActions binds the dispatch gestures to a live page.
func pageActions(page *rod.Page, prompt string) submitActions {
	return submitActions{
		clickToggle: func(ctrl Control) error {
			el := ctrl.(rodControl).el
			if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
				log.Debug("submit: native toggle click failed, trying scripted click", "error", err)
				if _, serr := el.Eval(`() => this.click()`); serr != nil {
					return serr
				}
			}
			time.Sleep(500 * time.Millisecond)
			return nil
		},
		clickSubmit: func(ctrl Control) error {
			if err := ctrl.(rodControl).el.Click(proto.InputMouseButtonLeft, 1); err != nil {
				return err
			}
			time.Sleep(3 * time.Second)
			return nil
		},
		retype: func() error {
			el, err := findComposer(page)
			if err != nil {
				return err
			}
			if text, terr := el.Text(); terr == nil && strings.TrimSpace(text) == "" {
				log.Warn("submit: composer was cleared, re-typing prompt")
				if ierr := el.Input(prompt); ierr != nil {
					log.Warn("submit: re-typing failed", "error", ierr)
				}
				time.Sleep(200 * time.Millisecond)
			}
			return nil
		},
		ctrlEnter: func() error {
			if err := page.KeyActions().Press(input.ControlLeft).Type(input.Enter).Do(); err != nil {
				return err
			}
			time.Sleep(2 * time.Second)
			return nil
		},
		plainEnter: func() error {
			if err := page.Keyboard.Press(input.Enter); err != nil {
				return err
			}
			time.Sleep(2 * time.Second)
			return nil
		},
	}
}

// clearComposer selects everything in the focused composer and deletes it.
func clearComposer(page *rod.Page) error {
	if err := page.KeyActions().Press(input.ControlLeft, input.KeyA).Do(); err != nil {
		return err
	}
	return page.Keyboard.Press(input.Backspace)
}

// firstVisible returns the first visible element matching selector, or nil.
func firstVisible(page *rod.Page, selector string) *rod.Element {
	els, err := page.Elements(selector)
	if err != nil {
		return nil
	}
	for _, el := range els {
		if visible, _ := el.Visible(); visible {
			return el
		}
	}
	return nil
}
