package browser

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog/log"
)

// Launcher opens a page for a new session, wiring its events into sink.
// The returned closer releases everything behind the page.
type Launcher interface {
	Launch(opts SessionOptions, sink EventSink) (Page, io.Closer, error)
	Close() error
}

// PlaywrightLauncher starts Chromium through playwright. The driver is started
// on first use.
type PlaywrightLauncher struct {
	// Install downloads the driver and browsers before starting
	Install bool

	mu sync.Mutex
	pw *playwright.Playwright
}

var _ Launcher = (*PlaywrightLauncher)(nil)

func (l *PlaywrightLauncher) driver() (*playwright.Playwright, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pw != nil {
		return l.pw, nil
	}

	opts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if l.Install {
		if err := playwright.Install(opts); err != nil {
			return nil, fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}
	l.pw = pw
	log.Info().Msg("playwright driver started")
	return pw, nil
}

// Launch starts a browser, context and page for one session
func (l *PlaywrightLauncher) Launch(opts SessionOptions, sink EventSink) (Page, io.Closer, error) {
	pw, err := l.driver()
	if err != nil {
		return nil, nil, err
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		return nil, nil, err
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		},
	})
	if err != nil {
		browser.Close()
		return nil, nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		browser.Close()
		return nil, nil, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(opts.Timeout)

	page.OnConsole(func(msg playwright.ConsoleMessage) {
		sink.RecordConsole(msg.Type(), msg.Text())
	})
	page.OnResponse(func(resp playwright.Response) {
		sink.RecordResponse(resp.Request().Method(), resp.URL(), resp.Status())
	})

	return page, closerFunc(func() error {
		return errors.Join(bctx.Close(), browser.Close())
	}), nil
}

// Close stops the playwright driver if it was started
func (l *PlaywrightLauncher) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pw == nil {
		return nil
	}
	err := l.pw.Stop()
	l.pw = nil
	if err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
