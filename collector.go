package main

import (
	"errors"
	"sync"
	"time"
)

// AcceptResult describes what one Accept call changed.
type AcceptResult struct {
	Self       bool // our own beacon, nothing changed
	Recorded   bool // appended to history
	Duplicate  bool // suppressed by the cooldown window
	NewCountry bool // country added to the collected set
	Evicted    int  // oldest entries dropped to stay within the limit
	Encounter  Encounter
}

// CollectorOptions configures a Collector.
type CollectorOptions struct {
	Self          DeviceID
	HistoryPath   string
	CollectedPath string
	Cooldown      time.Duration
	Limit         int
	Notifier      *Notifier
}

// Collector records encounters and collected countries. One mutex guards
// both so readers never see one updated without the other.
type Collector struct {
	mu        sync.Mutex
	history   []Encounter
	collected []string
	seen      map[string]struct{}

	self          DeviceID
	historyPath   string
	collectedPath string
	cooldown      time.Duration
	limit         int
	notifier      *Notifier
}

// NewCollector loads history and the collected set from disk. Missing or
// corrupt files start empty.
func NewCollector(opts CollectorOptions) *Collector {
	if opts.Cooldown <= 0 {
		opts.Cooldown = defaultCooldown
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultHistoryLimit
	}
	if opts.Notifier == nil {
		opts.Notifier = NewNotifier(nil)
	}

	c := &Collector{
		self:          opts.Self,
		historyPath:   opts.HistoryPath,
		collectedPath: opts.CollectedPath,
		cooldown:      opts.Cooldown,
		limit:         opts.Limit,
		notifier:      opts.Notifier,
		seen:          make(map[string]struct{}),
	}

	var history []Encounter
	if loadJSON(c.historyPath, &history) {
		if len(history) > c.limit {
			history = history[len(history)-c.limit:]
		}
		c.history = history
	}

	var collected []string
	if loadJSON(c.collectedPath, &collected) {
		for _, country := range collected {
			if country == "" {
				continue
			}
			if _, dup := c.seen[country]; dup {
				continue
			}
			c.seen[country] = struct{}{}
			c.collected = append(c.collected, country)
		}
	}
	return c
}

// Accept records p heard at rssi. Only the most recent entry is compared for
// the cooldown, so a beacon from another sender in between lets a repeat
// through.
func (c *Collector) Accept(p Packet, rssi int, now time.Time) (AcceptResult, error) {
	if DeviceID(p.ID) == c.self {
		return AcceptResult{Self: true}, nil
	}

	entry := Encounter{
		ID:       p.ID,
		Name:     p.Name,
		Country:  p.Country,
		Favorite: p.Favorite,
		FutureOS: p.FutureOS,
		Message:  p.Message,
		RSSI:     rssi,
		Time:     unixSeconds(now),
	}
	res := AcceptResult{Encounter: entry}

	c.mu.Lock()
	var errs []error

	if c.isDuplicateLocked(entry, now) {
		res.Duplicate = true
	} else {
		c.history = append(c.history, entry)
		if over := len(c.history) - c.limit; over > 0 {
			c.history = append([]Encounter(nil), c.history[over:]...)
			res.Evicted = over
		}
		res.Recorded = true
		if err := saveJSON(c.historyPath, c.history); err != nil {
			errs = append(errs, err)
		}
	}

	if country := p.Country; country != "" {
		if _, ok := c.seen[country]; !ok {
			c.seen[country] = struct{}{}
			c.collected = append(c.collected, country)
			res.NewCountry = true
			if err := saveJSON(c.collectedPath, c.collected); err != nil {
				errs = append(errs, err)
			}
		}
	}
	c.mu.Unlock()

	if res.NewCountry {
		c.notifier.NewCountry(p.Country)
	}
	return res, errors.Join(errs...)
}

func (c *Collector) isDuplicateLocked(entry Encounter, now time.Time) bool {
	if len(c.history) == 0 {
		return false
	}
	last := c.history[len(c.history)-1]
	return last.ID == entry.ID && now.Sub(last.At()) < c.cooldown
}

// History returns a copy of every entry, oldest first.
func (c *Collector) History() []Encounter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Encounter(nil), c.history...)
}

// Recent returns up to n entries, newest first.
func (c *Collector) Recent(n int) []Encounter {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n <= 0 || n > len(c.history) {
		n = len(c.history)
	}
	out := make([]Encounter, 0, n)
	for i := len(c.history) - 1; i >= len(c.history)-n; i-- {
		out = append(out, c.history[i])
	}
	return out
}

// Collected returns the collected countries in the order they were found.
func (c *Collector) Collected() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.collected...)
}

func (c *Collector) HasCountry(country string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.seen[country]
	return ok
}

// Last returns the newest entry.
func (c *Collector) Last() (Encounter, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.history) == 0 {
		return Encounter{}, false
	}
	return c.history[len(c.history)-1], true
}

func (c *Collector) Counts() (history, collected int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.history), len(c.collected)
}

// Snapshot is a consistent view of both collections.
type Snapshot struct {
	History   []Encounter
	Collected []string
}

func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		History:   append([]Encounter(nil), c.history...),
		Collected: append([]string(nil), c.collected...),
	}
}

// ResetCollected empties the collected set.
func (c *Collector) ResetCollected() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.collected = nil
	c.seen = make(map[string]struct{})
	return saveJSON(c.collectedPath, []string{})
}

func (c *Collector) ClearHistory() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = nil
	return saveJSON(c.historyPath, []Encounter{})
}
