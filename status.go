package main

import (
	"sync"
	"time"
)

// Status is the one-line state shown to the user. Both background loops
// write it; front ends read it.
type Status struct {
	mu      sync.RWMutex
	text    string
	updated time.Time
}

func NewStatus(text string) *Status {
	return &Status{text: text, updated: time.Now()}
}

func (s *Status) Set(text string) {
	s.mu.Lock()
	s.text = text
	s.updated = time.Now()
	s.mu.Unlock()
}

func (s *Status) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.text
}

// Updated reports when the status last changed.
func (s *Status) Updated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updated
}
