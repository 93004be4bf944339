package browser

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/IntelliBrowse-hq/intellibrowse/pkg/testtypes"
)

// Tool is a browser action invoked by name with JSON arguments
type Tool interface {
	Name() string
	Description() string
	Schema() map[string]any
	Execute(ctx context.Context, args map[string]any) (any, error)
}

var sessionIDProp = prop("string", "ID of the browser session to use")

// sessionTool resolves the session_id argument shared by most tools
type sessionTool struct {
	manager *Manager
}

func (t sessionTool) session(ctx context.Context, args map[string]any) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id, err := stringArg(args, "session_id", true)
	if err != nil {
		return nil, err
	}
	return t.manager.GetSession(id)
}

func selectorArg(args map[string]any) (string, error) {
	selector, err := stringArg(args, "selector", true)
	if err != nil {
		return "", err
	}
	if testtypes.HasForbiddenSelectorChars(selector) {
		return "", fmt.Errorf("selector contains forbidden characters (< > { } | \\)")
	}
	return selector, nil
}

// StartSessionTool opens a new browser session
type StartSessionTool struct{ sessionTool }

func (t *StartSessionTool) Name() string { return "start_session" }

func (t *StartSessionTool) Description() string {
	return "Start a new browser session. Returns the session_id used by the other tools."
}

func (t *StartSessionTool) Schema() map[string]any {
	return schema(map[string]any{
		"session_id": prop("string", "Optional name for the session; generated when omitted"),
		"headless":   prop("boolean", "Run without a visible window (defaults to the server setting)"),
	})
}

func (t *StartSessionTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	id, err := stringArg(args, "session_id", false)
	if err != nil {
		return nil, err
	}
	headless, err := boolArg(args, "headless", t.manager.DefaultHeadless())
	if err != nil {
		return nil, err
	}

	session, err := t.manager.StartSession(ctx, SessionOptions{ID: id, Headless: headless})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"session_id": session.ID,
		"headless":   session.Headless,
	}, nil
}

// CloseSessionTool closes a browser session
type CloseSessionTool struct{ sessionTool }

func (t *CloseSessionTool) Name() string        { return "close_session" }
func (t *CloseSessionTool) Description() string { return "Close a browser session and free its resources." }

func (t *CloseSessionTool) Schema() map[string]any {
	return schema(map[string]any{"session_id": sessionIDProp}, "session_id")
}

func (t *CloseSessionTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	id, err := stringArg(args, "session_id", true)
	if err != nil {
		return nil, err
	}
	if err := t.manager.CloseSession(id); err != nil {
		return nil, err
	}
	return map[string]any{"session_id": id, "closed": true}, nil
}

// NavigateTool loads a URL in a session
type NavigateTool struct{ sessionTool }

func (t *NavigateTool) Name() string { return "navigate_to_url" }

func (t *NavigateTool) Description() string {
	return "Navigate the session's page to an http(s) URL and wait for it to load."
}

func (t *NavigateTool) Schema() map[string]any {
	return schema(map[string]any{
		"session_id": sessionIDProp,
		"url":        prop("string", "Absolute http or https URL"),
		"wait_until": prop("string", "load (default), domcontentloaded, networkidle or commit"),
	}, "session_id", "url")
}

var waitStates = map[string]*playwright.WaitUntilState{
	"load":             playwright.WaitUntilStateLoad,
	"domcontentloaded": playwright.WaitUntilStateDomcontentloaded,
	"networkidle":      playwright.WaitUntilStateNetworkidle,
	"commit":           playwright.WaitUntilStateCommit,
}

func (t *NavigateTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	session, err := t.session(ctx, args)
	if err != nil {
		return nil, err
	}
	url, err := stringArg(args, "url", true)
	if err != nil {
		return nil, err
	}
	if !testtypes.IsValidURL(url) {
		return nil, fmt.Errorf("invalid URL: %s", url)
	}

	opts := playwright.PageGotoOptions{WaitUntil: playwright.WaitUntilStateLoad}
	if wait, err := stringArg(args, "wait_until", false); err != nil {
		return nil, err
	} else if wait != "" {
		state, ok := waitStates[strings.ToLower(wait)]
		if !ok {
			return nil, fmt.Errorf("invalid wait_until: %s", wait)
		}
		opts.WaitUntil = state
	}

	page := session.Page()
	resp, err := page.Goto(url, opts)
	if err != nil {
		return nil, fmt.Errorf("navigation failed: %w", err)
	}

	result := map[string]any{"url": page.URL()}
	if resp != nil {
		result["status"] = resp.Status()
	}
	if title, err := page.Title(); err == nil {
		result["title"] = title
	}
	return result, nil
}

// ClickTool clicks an element
type ClickTool struct{ sessionTool }

func (t *ClickTool) Name() string        { return "click_element" }
func (t *ClickTool) Description() string { return "Click the element matching a CSS or XPath selector." }

func (t *ClickTool) Schema() map[string]any {
	return schema(map[string]any{
		"session_id": sessionIDProp,
		"selector":   prop("string", "Selector of the element to click"),
	}, "session_id", "selector")
}

func (t *ClickTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	session, err := t.session(ctx, args)
	if err != nil {
		return nil, err
	}
	selector, err := selectorArg(args)
	if err != nil {
		return nil, err
	}

	page := session.Page()
	if err := page.Click(selector); err != nil {
		return nil, fmt.Errorf("click failed: %w", err)
	}
	return map[string]any{"selector": selector, "url": page.URL()}, nil
}

// HoverTool moves the mouse over an element
type HoverTool struct{ sessionTool }

func (t *HoverTool) Name() string        { return "hover_element" }
func (t *HoverTool) Description() string { return "Hover over the element matching a selector." }

func (t *HoverTool) Schema() map[string]any {
	return schema(map[string]any{
		"session_id": sessionIDProp,
		"selector":   prop("string", "Selector of the element to hover"),
	}, "session_id", "selector")
}

func (t *HoverTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	session, err := t.session(ctx, args)
	if err != nil {
		return nil, err
	}
	selector, err := selectorArg(args)
	if err != nil {
		return nil, err
	}

	if err := session.Page().Hover(selector); err != nil {
		return nil, fmt.Errorf("hover failed: %w", err)
	}
	return map[string]any{"selector": selector}, nil
}

// ScreenshotTool captures the page as a base64 PNG
type ScreenshotTool struct{ sessionTool }

func (t *ScreenshotTool) Name() string        { return "take_screenshot" }
func (t *ScreenshotTool) Description() string { return "Capture a PNG screenshot of the page, base64 encoded." }

func (t *ScreenshotTool) Schema() map[string]any {
	return schema(map[string]any{
		"session_id": sessionIDProp,
		"full_page":  prop("boolean", "Capture the full scrollable page instead of the viewport"),
	}, "session_id")
}

func (t *ScreenshotTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	session, err := t.session(ctx, args)
	if err != nil {
		return nil, err
	}
	fullPage, err := boolArg(args, "full_page", false)
	if err != nil {
		return nil, err
	}

	img, err := session.Page().Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(fullPage),
		Type:     playwright.ScreenshotTypePng,
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return map[string]any{
		"format":       "png",
		"size_bytes":   len(img),
		"image_base64": base64.StdEncoding.EncodeToString(img),
	}, nil
}

// ConsoleLogsTool returns captured console output
type ConsoleLogsTool struct{ sessionTool }

func (t *ConsoleLogsTool) Name() string { return "get_console_logs" }

func (t *ConsoleLogsTool) Description() string {
	return "Return console messages captured in the session, optionally filtered by level (log, info, warning, error, debug)."
}

func (t *ConsoleLogsTool) Schema() map[string]any {
	return schema(map[string]any{
		"session_id": sessionIDProp,
		"level":      prop("string", "Only return messages of this level"),
	}, "session_id")
}

func (t *ConsoleLogsTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	session, err := t.session(ctx, args)
	if err != nil {
		return nil, err
	}
	level, err := stringArg(args, "level", false)
	if err != nil {
		return nil, err
	}

	logs := session.ConsoleLogs(strings.ToLower(level))
	return map[string]any{"logs": logs, "count": len(logs)}, nil
}

// AssertNetworkRequestTool checks that a matching response was observed
type AssertNetworkRequestTool struct{ sessionTool }

func (t *AssertNetworkRequestTool) Name() string { return "assert_network_request" }

func (t *AssertNetworkRequestTool) Description() string {
	return "Assert that the session observed a response whose URL contains a substring, optionally with a given method and status."
}

func (t *AssertNetworkRequestTool) Schema() map[string]any {
	return schema(map[string]any{
		"session_id":   sessionIDProp,
		"url_contains": prop("string", "Substring the request URL must contain"),
		"method":       prop("string", "HTTP method, e.g. GET or POST"),
		"status":       prop("integer", "Expected HTTP status code"),
	}, "session_id", "url_contains")
}

func (t *AssertNetworkRequestTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	session, err := t.session(ctx, args)
	if err != nil {
		return nil, err
	}
	fragment, err := stringArg(args, "url_contains", true)
	if err != nil {
		return nil, err
	}
	method, err := stringArg(args, "method", false)
	if err != nil {
		return nil, err
	}
	status, hasStatus, err := intArg(args, "status")
	if err != nil {
		return nil, err
	}

	var matches []NetworkEntry
	for _, e := range session.NetworkLog() {
		if !strings.Contains(e.URL, fragment) {
			continue
		}
		if method != "" && !strings.EqualFold(e.Method, method) {
			continue
		}
		if hasStatus && e.Status != status {
			continue
		}
		matches = append(matches, e)
	}

	if len(matches) == 0 {
		return nil, fmt.Errorf("no network request matched %q", fragment)
	}
	return map[string]any{"matched": len(matches), "requests": matches}, nil
}
