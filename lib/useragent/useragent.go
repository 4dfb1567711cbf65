// Package useragent supplies the User-Agent header for outbound requests.
// A Source is passed explicitly down the fetch call chain.
package useragent

import (
	"sync"

	browser "github.com/EDDYCJY/fake-useragent"
)

type Source interface {
	Next() string
}

// Fixed always hands out the same user agent.
type Fixed string

func (f Fixed) Next() string {
	return string(f)
}

// DefaultUserAgent is used when no user agent is configured and random user
// agents are disabled.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// Random draws a fresh desktop browser user agent on every call.
type Random struct{}

func (Random) Next() string {
	ua := browser.Random()
	if ua == "" {
		return DefaultUserAgent
	}
	return ua
}

// Sticky keeps the user agent drawn from Base until Rotate is called, a run
// uses one identity unless it is asked to rotate between rows.
type Sticky struct {
	Base Source

	mu      sync.Mutex
	current string
}

func NewSticky(base Source) *Sticky {
	return &Sticky{Base: base}
}

func (s *Sticky) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == "" {
		s.current = s.Base.Next()
	}
	return s.current
}

// Rotate discards the current user agent, the next call draws a new one.
func (s *Sticky) Rotate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = ""
}
