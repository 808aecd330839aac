package browser

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"pplxbridge/internal/config"
)

// Instance is one running browser bound to the profile directory, with a
// stealth page already navigated to the target site.
type Instance struct {
	Browser    *rod.Browser
	Page       *rod.Page
	ConnectURL string

	// CloseFn tears down whatever the launcher acquired: the browser
	// connection, and in docker mode the container too.
	CloseFn func()
}

// Close releases everything the launcher acquired. Safe to call once on
// every exit path.
func (i *Instance) Close() {
	if i.CloseFn != nil {
		i.CloseFn()
	}
}

// Launcher starts a ready-to-drive browser session. Implementations own
// navigation and the post-navigation settle wait, so a returned Instance
// is already sitting on the target page.
type Launcher interface {
	Mode() string
	Launch(ctx context.Context) (*Instance, error)
}

// preparePage creates a stealth page on the browser, grants clipboard read
// for the copy-extraction step, and rides out the site's anti-automation
// challenge: navigate, give the challenge its reconnect allowance, retry
// the navigation once if we got bounced, then settle.
func preparePage(browser *rod.Browser, cfg *config.Config) (*rod.Page, error) {
	page, err := stealth.Page(browser)
	if err != nil {
		return nil, err
	}

	err = proto.BrowserGrantPermissions{
		Permissions: []proto.BrowserPermissionType{
			proto.BrowserPermissionTypeClipboardReadWrite,
			proto.BrowserPermissionTypeClipboardSanitizedWrite,
		},
	}.Call(browser)
	if err != nil {
		log.Warn("browser: clipboard permission grant failed", "error", err)
	}

	log.Info("browser: opening target", "url", cfg.TargetURL)
	if err := page.Navigate(cfg.TargetURL); err != nil {
		return nil, err
	}
	if err := page.WaitLoad(); err != nil {
		log.Debug("browser: initial load interrupted, likely a challenge reload", "error", err)
	}
	time.Sleep(cfg.ReconnectWait)

	if !onTarget(page, cfg.TargetURL) {
		log.Info("browser: re-navigating after challenge")
		if err := page.Navigate(cfg.TargetURL); err != nil {
			return nil, err
		}
		page.WaitLoad()
	}

	// Fixed settle time for any remaining challenge interstitial
	time.Sleep(cfg.SettleWait)
	return page, nil
}

func onTarget(page *rod.Page, target string) bool {
	info, err := page.Info()
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(target, "https://")
	host = strings.TrimPrefix(host, "http://")
	host = strings.TrimPrefix(host, "www.")
	return strings.Contains(info.URL, host)
}
