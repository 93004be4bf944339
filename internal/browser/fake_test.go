package browser

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// fakeResponse overrides the one method the tools read
type fakeResponse struct {
	playwright.Response
	status int
}

func (r fakeResponse) Status() int { return r.status }

// fakePage records calls instead of driving a browser
type fakePage struct {
	mu       sync.Mutex
	url      string
	title    string
	clicked  []string
	hovered  []string
	closed   bool
	gotoErr  error
	clickErr error
	shot     []byte
	panicOn  string
}

var _ Page = (*fakePage)(nil)

func (p *fakePage) Goto(url string, _ ...playwright.PageGotoOptions) (playwright.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gotoErr != nil {
		return nil, p.gotoErr
	}
	p.url = url
	return fakeResponse{status: 200}, nil
}

func (p *fakePage) Click(selector string, _ ...playwright.PageClickOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.panicOn == "click" {
		panic("driver crashed")
	}
	if p.clickErr != nil {
		return p.clickErr
	}
	p.clicked = append(p.clicked, selector)
	return nil
}

func (p *fakePage) Hover(selector string, _ ...playwright.PageHoverOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hovered = append(p.hovered, selector)
	return nil
}

func (p *fakePage) Screenshot(_ ...playwright.PageScreenshotOptions) ([]byte, error) {
	if p.shot == nil {
		return nil, errors.New("no screenshot")
	}
	return p.shot, nil
}

func (p *fakePage) Title() (string, error) { return p.title, nil }

func (p *fakePage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.url == "" {
		return "about:blank"
	}
	return p.url
}

func (p *fakePage) Close(_ ...playwright.PageCloseOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// fakeLauncher hands out fakePages and remembers the sinks it was given
type fakeLauncher struct {
	mu        sync.Mutex
	pages     []*fakePage
	sinks     []EventSink
	opts      []SessionOptions
	launchErr error
	closed    bool

	// entered receives once per Launch call; gate holds Launch until closed
	entered chan struct{}
	gate    chan struct{}
}

var _ Launcher = (*fakeLauncher)(nil)

func (l *fakeLauncher) Launch(opts SessionOptions, sink EventSink) (Page, io.Closer, error) {
	if l.entered != nil {
		l.entered <- struct{}{}
	}
	if l.gate != nil {
		<-l.gate
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.launchErr != nil {
		return nil, nil, l.launchErr
	}
	page := &fakePage{title: "Example", shot: []byte("png-bytes")}
	l.pages = append(l.pages, page)
	l.sinks = append(l.sinks, sink)
	l.opts = append(l.opts, opts)
	return page, nil, nil
}

func (l *fakeLauncher) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

// clock is a settable time source
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
