package browser

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/devices"
	"github.com/go-rod/rod/lib/launcher"

	"pplxbridge/internal/config"
	"pplxbridge/internal/profile"
)

// LocalLauncher runs Chrome on this machine against the persistent profile
// directory, headed by default so challenge pages behave like a real user's
// browser.
type LocalLauncher struct {
	cfg      *config.Config
	profiles *profile.Manager
}

func NewLocalLauncher(cfg *config.Config, profiles *profile.Manager) *LocalLauncher {
	return &LocalLauncher{cfg: cfg, profiles: profiles}
}

func (l *LocalLauncher) Mode() string { return "local" }

func (l *LocalLauncher) Launch(ctx context.Context) (*Instance, error) {
	// Chrome refuses to start over stale singleton locks from a crash
	if err := l.profiles.Prepare(); err != nil {
		return nil, fmt.Errorf("prepare profile: %w", err)
	}

	opts := launcher.New().
		UserDataDir(l.profiles.Dir()).
		Headless(l.cfg.Headless).
		Set("disable-dev-shm-usage").
		Set("disable-blink-features", "AutomationControlled")
	if l.cfg.BrowserBin != "" {
		opts = opts.Bin(l.cfg.BrowserBin)
	}
	// Headed mode needs an explicit size or Chrome opens a tiny window and
	// the site falls back to its mobile layout
	if !l.cfg.Headless {
		opts = opts.Set("window-size", "1920,1080").
			Set("start-maximized")
	}

	controlURL, err := opts.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().Context(ctx).ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to browser: %w", err)
	}
	// Rod defaults to a laptop device profile that constrains the viewport
	browser.DefaultDevice(devices.Clear)

	page, err := preparePage(browser, l.cfg)
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("prepare page: %w", err)
	}

	log.Info("browser: launched", "mode", "local", "profile", l.profiles.Dir(), "headless", l.cfg.Headless)

	return &Instance{
		Browser:    browser,
		Page:       page,
		ConnectURL: controlURL,
		CloseFn: func() {
			if err := browser.Close(); err != nil {
				log.Warn("browser: close failed", "error", err)
			}
		},
	}, nil
}
