package pplx

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

const stopButtonSelector = "button[data-testid='stop-generating-response-button']"

// copyStrategies is the ordered fallback chain for the copy-to-clipboard
// control. The site has shipped several variants of this button; trying
// them in order survives most of its redesigns.
var copyStrategies = []Strategy{
	{Name: "aria-label", Selector: "button[aria-label='Copy']"},
	{Name: "title", Selector: "button[title='Copy']"},
	{Name: "testid", Selector: "button[data-testid='copy-button']"},
	{Name: "class", Selector: ".copy-button"},
	{Name: "role", Selector: "[role='button'][aria-label='Copy']"},
}

// scrollContainers are candidates for the element that actually owns the
// conversation scrollbar.
var scrollContainers = []string{
	"main",
	"[role='main']",
	".conversation",
	".answer",
	".result",
	"[data-testid='conversation']",
}

// extractAnswer waits out generation, scrolls to the true bottom of the
// page, triggers the copy control, and returns the clipboard text with
// trailing citations stripped.
func (c *Client) extractAnswer(page *rod.Page) (string, error) {
	log.Info("extract: waiting for generation to complete")
	done := c.policies.Generation.WaitGone(func() (bool, error) {
		return firstVisible(page, stopButtonSelector) != nil, nil
	})
	if done {
		log.Info("extract: generation complete, stop button gone")
	} else {
		// Not fatal; extraction still gets whatever rendered
		log.Warn("extract: generation still running at ceiling, proceeding",
			"ceiling", c.policies.Generation.Ceiling)
	}

	log.Debug("extract: scrolling to bottom")
	reached := c.policies.Scroll.ToBottom(
		func() int { return pageHeight(page) },
		func() { scrollToBottom(page) },
	)
	if !reached {
		log.Warn("extract: max scroll rounds reached, proceeding from current position")
	}
	c.scrollBattery(page)

	ctrl, name, err := locateWithRetry(c.policies.Copy, copyStrategies, rodFinder(page), func() {
		// A nudge sometimes materializes a lazily rendered toolbar
		page.Eval(`() => window.scrollBy(0, 200)`)
		time.Sleep(time.Second)
	})
	if err != nil {
		return "", fmt.Errorf("copy control: %w", err)
	}
	log.Info("extract: copy control found", "strategy", name)

	if err := clickCopyControl(ctrl.(rodControl).el); err != nil {
		return "", err
	}
	time.Sleep(3 * time.Second)

	text, err := c.policies.Clipboard.Read(func() (string, error) {
		res, err := page.Eval(`() => navigator.clipboard.readText()`)
		if err != nil {
			return "", err
		}
		return res.Value.Str(), nil
	})
	if err != nil {
		return "", err
	}

	answer := StripCitations(text)
	log.Info("extract: clipboard read", "chars", len(answer))
	return answer, nil
}

// clickCopyControl clicks with three escalating strategies: a native click,
// a scripted click, and a synthetic dispatched event. The click lands twice
// on purpose; the site's copy handler occasionally swallows the first.
func clickCopyControl(el *rod.Element) error {
	if err := el.ScrollIntoView(); err != nil {
		log.Debug("extract: scroll into view failed", "error", err)
	}
	time.Sleep(2 * time.Second)

	err := el.Click(proto.InputMouseButtonLeft, 1)
	if err == nil {
		el.Click(proto.InputMouseButtonLeft, 1)
		log.Debug("extract: copy clicked natively")
		return nil
	}
	log.Debug("extract: native click failed", "error", err)

	if _, err = el.Eval(`() => this.click()`); err == nil {
		el.Eval(`() => this.click()`)
		log.Debug("extract: copy clicked via script")
		return nil
	}
	log.Debug("extract: scripted click failed", "error", err)

	if _, err := el.Eval(`() => this.dispatchEvent(new MouseEvent('click', {
		bubbles: true,
		cancelable: true,
		view: window,
	}))`); err == nil {
		log.Debug("extract: copy clicked via dispatched event")
		return nil
	}

	return fmt.Errorf("copy control click: %w", ErrActionFailed)
}

// scrollBattery is the unconditional set of extra scroll techniques run
// after the adaptive loop, for pages where the height probe lies.
func (c *Client) scrollBattery(page *rod.Page) {
	for i := 0; i < 3; i++ {
		scrollToBottom(page)
		time.Sleep(time.Second)
		page.Eval(`() => { document.body.scrollTop = document.body.scrollHeight }`)
		time.Sleep(time.Second)
		page.Eval(`() => { document.documentElement.scrollTop = document.documentElement.scrollHeight }`)
		time.Sleep(time.Second)
	}

	page.Eval(`() => window.scrollTo(0, Number.MAX_SAFE_INTEGER)`)
	time.Sleep(2 * time.Second)

	for _, container := range scrollContainers {
		_, err := page.Eval(fmt.Sprintf(`() => {
			const el = document.querySelector(%q);
			if (el) el.scrollTo(0, el.scrollHeight);
		}`, container))
		if err != nil {
			log.Debug("extract: container scroll failed", "container", container, "error", err)
			continue
		}
		time.Sleep(500 * time.Millisecond)
	}

	if _, err := page.Eval(`() => {
		const all = document.querySelectorAll('*');
		const last = all[all.length - 1];
		if (last) last.scrollIntoView({behavior: 'smooth', block: 'end'});
	}`); err != nil {
		log.Debug("extract: last element scroll failed", "error", err)
	}
	time.Sleep(2 * time.Second)
}

func scrollToBottom(page *rod.Page) {
	page.Eval(`() => window.scrollTo(0, Math.max(document.body.scrollHeight, document.documentElement.scrollHeight))`)
}

func pageHeight(page *rod.Page) int {
	res, err := page.Eval(`() => Math.max(document.body.scrollHeight, document.documentElement.scrollHeight)`)
	if err != nil {
		return 0
	}
	return int(res.Value.Int())
}

// rodControl adapts a rod element to the locator's Control view.
type rodControl struct {
	el *rod.Element
}

func (c rodControl) Visible() bool {
	visible, err := c.el.Visible()
	return err == nil && visible
}

func (c rodControl) Enabled() bool {
	disabled, err := c.el.Attribute("disabled")
	return err != nil || disabled == nil
}

// rodFinder builds a FindFunc over live page lookups.
func rodFinder(page *rod.Page) FindFunc {
	return func(selector string) []Control {
		els, err := page.Elements(selector)
		if err != nil {
			return nil
		}
		controls := make([]Control, 0, len(els))
		for _, el := range els {
			controls = append(controls, rodControl{el: el})
		}
		return controls
	}
}
