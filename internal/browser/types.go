package browser

import (
	"errors"
	"time"

	"github.com/playwright-community/playwright-go"
)

var (
	// ErrSessionNotFound indicates no session has the requested ID
	ErrSessionNotFound = errors.New("browser session not found")
	// ErrSessionExists indicates a session with the requested ID is already open
	ErrSessionExists = errors.New("browser session already exists")
	// ErrSessionLimit indicates the manager is at its session limit
	ErrSessionLimit = errors.New("maximum number of browser sessions reached")
	// ErrManagerClosed indicates the manager has been shut down
	ErrManagerClosed = errors.New("browser manager is shut down")
	// ErrUnknownTool indicates no tool is registered under the requested name
	ErrUnknownTool = errors.New("unknown tool")
)

// Page is the subset of playwright.Page used by the tools
type Page interface {
	Goto(url string, options ...playwright.PageGotoOptions) (playwright.Response, error)
	Click(selector string, options ...playwright.PageClickOptions) error
	Hover(selector string, options ...playwright.PageHoverOptions) error
	Screenshot(options ...playwright.PageScreenshotOptions) ([]byte, error)
	Title() (string, error)
	URL() string
	Close(options ...playwright.PageCloseOptions) error
}

var _ Page = (playwright.Page)(nil)

// EventSink receives page events for a session
type EventSink interface {
	RecordConsole(level, text string)
	RecordResponse(method, url string, status int)
}

// SessionOptions configures a new browser session
type SessionOptions struct {
	// ID names the session; a random ID is generated when empty
	ID       string
	Headless bool
	// Timeout is the default action timeout in milliseconds
	Timeout float64
}

// ConsoleEntry is one console message emitted by a page
type ConsoleEntry struct {
	Level     string    `json:"level"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// NetworkEntry is one response observed by a page
type NetworkEntry struct {
	Method    string    `json:"method"`
	URL       string    `json:"url"`
	Status    int       `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionInfo describes an open session
type SessionInfo struct {
	ID         string    `json:"id"`
	CurrentURL string    `json:"current_url"`
	Headless   bool      `json:"headless"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
}

const (
	DefaultTimeout        = 30000.0
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
	maxLogEntries         = 500
)
