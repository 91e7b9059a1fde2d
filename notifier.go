package main

import (
	"io"
	"log"
	"strings"
	"sync"
)

// flashTimes is how many bursts mark a newly collected country.
const flashTimes = 2

// Indicator drives the physical new-country cue.
type Indicator interface {
	Flash(times int) error
}

type nopIndicator struct{}

func (nopIndicator) Flash(int) error { return nil }

// bellIndicator rings the terminal bell.
type bellIndicator struct {
	w io.Writer
}

func (b bellIndicator) Flash(times int) error {
	if times <= 0 {
		return nil
	}
	_, err := io.WriteString(b.w, strings.Repeat("\a", times))
	return err
}

// Notifier counts new-country events until a front end drains them and
// flashes the indicator as each one happens.
type Notifier struct {
	mu        sync.Mutex
	pending   int
	last      string
	indicator Indicator
}

func NewNotifier(ind Indicator) *Notifier {
	if ind == nil {
		ind = nopIndicator{}
	}
	return &Notifier{indicator: ind}
}

// NewCountry records one event and fires the indicator inline.
func (n *Notifier) NewCountry(country string) {
	n.mu.Lock()
	n.pending++
	n.last = country
	n.mu.Unlock()

	if err := n.indicator.Flash(flashTimes); err != nil {
		log.Printf("Indicator flash failed: %v", err)
	}
}

// Drain returns the number of events since the previous call and resets it.
func (n *Notifier) Drain() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := n.pending
	n.pending = 0
	return count
}

func (n *Notifier) Pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.pending
}

// LastCountry is the most recent country reported, drained or not.
func (n *Notifier) LastCountry() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.last
}
