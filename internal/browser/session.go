package browser

import (
	"io"
	"sync"
	"time"
)

// Session is an open browser page plus the console and network activity it has produced
type Session struct {
	ID        string
	Headless  bool
	CreatedAt time.Time

	page   Page
	closer io.Closer

	mu       sync.Mutex
	lastUsed time.Time
	console  []ConsoleEntry
	network  []NetworkEntry
	now      func() time.Time
}

var _ EventSink = (*Session)(nil)

func newSession(id string, headless bool, now func() time.Time) *Session {
	t := now()
	return &Session{
		ID:        id,
		Headless:  headless,
		CreatedAt: t,
		lastUsed:  t,
		now:       now,
	}
}

// Page marks the session used and returns its page
func (s *Session) Page() Page {
	s.touch()
	return s.page
}

// RecordConsole appends a console message, dropping the oldest past the buffer size
func (s *Session) RecordConsole(level, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.console = appendBounded(s.console, ConsoleEntry{Level: level, Text: text, Timestamp: s.now()})
}

// RecordResponse appends an observed network response
func (s *Session) RecordResponse(method, url string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.network = appendBounded(s.network, NetworkEntry{Method: method, URL: url, Status: status, Timestamp: s.now()})
}

// ConsoleLogs returns console entries, optionally only those of one level
func (s *Session) ConsoleLogs(level string) []ConsoleEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ConsoleEntry, 0, len(s.console))
	for _, e := range s.console {
		if level == "" || e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// NetworkLog returns a copy of the observed responses
func (s *Session) NetworkLog() []NetworkEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]NetworkEntry(nil), s.network...)
}

// Info returns a snapshot of the session
func (s *Session) Info() SessionInfo {
	s.mu.Lock()
	lastUsed := s.lastUsed
	s.mu.Unlock()

	return SessionInfo{
		ID:         s.ID,
		CurrentURL: s.page.URL(),
		Headless:   s.Headless,
		CreatedAt:  s.CreatedAt,
		LastUsedAt: lastUsed,
	}
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastUsed = s.now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

func (s *Session) close() error {
	pageErr := s.page.Close()
	if s.closer != nil {
		if err := s.closer.Close(); err != nil {
			return err
		}
	}
	return pageErr
}

func appendBounded[T any](entries []T, e T) []T {
	entries = append(entries, e)
	if len(entries) > maxLogEntries {
		entries = entries[len(entries)-maxLogEntries:]
	}
	return entries
}
