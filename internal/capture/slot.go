package capture

import (
	"strings"
	"sync"
)

// TokenSlot receives the card token from the browser-side element.
type TokenSlot struct {
	name string

	mu    sync.RWMutex
	token string
}

func NewTokenSlot(name string) *TokenSlot {
	return &TokenSlot{name: name}
}

func (s *TokenSlot) Name() string {
	return s.name
}

func (s *TokenSlot) Fill(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = strings.TrimSpace(token)
}

func (s *TokenSlot) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}
