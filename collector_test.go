package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestCollector(t *testing.T, self DeviceID, ind Indicator) (*Collector, *Notifier, string) {
	t.Helper()
	dir := t.TempDir()
	n := NewNotifier(ind)
	c := NewCollector(CollectorOptions{
		Self:          self,
		HistoryPath:   filepath.Join(dir, historyFile),
		CollectedPath: filepath.Join(dir, collectedFile),
		Notifier:      n,
	})
	return c, n, dir
}

func beacon(id, name, country string) Packet {
	return Packet{Type: beaconType, ID: id, Name: name, Country: country, Version: beaconVersion}
}

var epoch = time.Unix(1_700_000_000, 0)

func at(seconds int) time.Time {
	return epoch.Add(time.Duration(seconds) * time.Second)
}

func TestCollectorScenario(t *testing.T) {
	data, err := EncodePacket(Profile{Name: "Alice", Country: "Japan", Favorite: "Kyoto", FutureOS: "Plan 10", Message: "hi"}, "AAA")
	if err != nil {
		t.Fatalf("EncodePacket() error = %v", err)
	}
	pkt, err := DecodePacket(data)
	if err != nil {
		t.Fatalf("DecodePacket() error = %v", err)
	}
	if pkt.Name != "Alice" || pkt.Country != "Japan" || pkt.ID != "AAA" {
		t.Fatalf("decoded = %+v", pkt)
	}

	c, n, _ := newTestCollector(t, "BBB", nil)

	res, err := c.Accept(pkt, -70, at(0))
	if err != nil {
		t.Fatalf("Accept(t=0) error = %v", err)
	}
	if !res.Recorded || !res.NewCountry {
		t.Fatalf("Accept(t=0) = %+v", res)
	}
	if h, col := c.Counts(); h != 1 || col != 1 {
		t.Fatalf("Counts() = %d, %d after t=0", h, col)
	}
	if !c.HasCountry("Japan") {
		t.Fatal("Japan not collected")
	}
	if got := n.Pending(); got != 1 {
		t.Fatalf("Pending() = %d after t=0", got)
	}

	res, err = c.Accept(pkt, -70, at(5))
	if err != nil {
		t.Fatalf("Accept(t=5) error = %v", err)
	}
	if res.Recorded || !res.Duplicate || res.NewCountry {
		t.Fatalf("Accept(t=5) = %+v", res)
	}
	if h, col := c.Counts(); h != 1 || col != 1 {
		t.Fatalf("Counts() = %d, %d after t=5", h, col)
	}
	if got := n.Pending(); got != 1 {
		t.Fatalf("Pending() = %d after t=5", got)
	}

	res, err = c.Accept(pkt, -70, at(20))
	if err != nil {
		t.Fatalf("Accept(t=20) error = %v", err)
	}
	if !res.Recorded || res.NewCountry {
		t.Fatalf("Accept(t=20) = %+v", res)
	}
	if h, col := c.Counts(); h != 2 || col != 1 {
		t.Fatalf("Counts() = %d, %d after t=20", h, col)
	}
	if got := n.Pending(); got != 1 {
		t.Fatalf("Pending() = %d after t=20", got)
	}

	last, ok := c.Last()
	if !ok || last.Name != "Alice" || last.RSSI != -70 || !last.At().Equal(at(20)) {
		t.Fatalf("Last() = %+v, %v", last, ok)
	}
}

func TestCollectorCooldownBoundary(t *testing.T) {
	tests := []struct {
		gap  int
		want bool
	}{
		{0, false},
		{9, false},
		{10, true},
		{11, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("gap=%ds", tt.gap), func(t *testing.T) {
			c, _, _ := newTestCollector(t, "self", nil)
			c.Accept(beacon("AAA", "Alice", ""), -70, at(0))
			res, _ := c.Accept(beacon("AAA", "Alice", ""), -70, at(tt.gap))
			if res.Recorded != tt.want {
				t.Fatalf("Recorded = %v, want %v", res.Recorded, tt.want)
			}
		})
	}
}

func TestCollectorCooldownSubSecond(t *testing.T) {
	first := epoch.Add(990 * time.Millisecond)
	tests := []struct {
		gap  time.Duration
		want bool
	}{
		{9500 * time.Millisecond, false},
		{9999 * time.Millisecond, false},
		{10010 * time.Millisecond, true},
		{10500 * time.Millisecond, true},
	}
	for _, tt := range tests {
		t.Run(tt.gap.String(), func(t *testing.T) {
			c, _, _ := newTestCollector(t, "self", nil)
			c.Accept(beacon("AAA", "Alice", ""), -70, first)
			res, _ := c.Accept(beacon("AAA", "Alice", ""), -70, first.Add(tt.gap))
			if res.Recorded != tt.want {
				t.Fatalf("Recorded = %v, want %v", res.Recorded, tt.want)
			}
		})
	}
}

func TestCollectorReloadKeepsSubSecondTime(t *testing.T) {
	c, _, dir := newTestCollector(t, "self", nil)
	first := epoch.Add(990 * time.Millisecond)
	c.Accept(beacon("AAA", "Alice", ""), -70, first)

	reloaded := NewCollector(CollectorOptions{
		Self:          "self",
		HistoryPath:   filepath.Join(dir, historyFile),
		CollectedPath: filepath.Join(dir, collectedFile),
	})
	res, _ := reloaded.Accept(beacon("AAA", "Alice", ""), -70, first.Add(9500*time.Millisecond))
	if res.Recorded {
		t.Fatal("repeat inside the cooldown was recorded after reload")
	}
}

func TestCollectorSingleSlotDedup(t *testing.T) {
	c, _, _ := newTestCollector(t, "self", nil)

	c.Accept(beacon("AAA", "Alice", ""), -70, at(0))
	c.Accept(beacon("CCC", "Carol", ""), -70, at(1))
	res, _ := c.Accept(beacon("AAA", "Alice", ""), -70, at(2))

	if !res.Recorded {
		t.Fatalf("repeat after another sender should be recorded: %+v", res)
	}
	if h, _ := c.Counts(); h != 3 {
		t.Fatalf("history = %d, want 3", h)
	}
}

func TestCollectorIgnoresSelf(t *testing.T) {
	ind := &countingIndicator{}
	c, n, _ := newTestCollector(t, "BBB", ind)

	res, err := c.Accept(beacon("BBB", "Me", "France"), -40, at(0))
	if err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	if !res.Self || res.Recorded || res.NewCountry {
		t.Fatalf("Accept(self) = %+v", res)
	}
	if h, col := c.Counts(); h != 0 || col != 0 {
		t.Fatalf("Counts() = %d, %d", h, col)
	}
	if n.Pending() != 0 || ind.Calls() != 0 {
		t.Fatalf("self beacon raised a notification")
	}
}

func TestCollectorCountriesOncePerCountry(t *testing.T) {
	ind := &countingIndicator{}
	c, n, _ := newTestCollector(t, "self", ind)

	countries := []string{"Japan", "Peru", "Japan", "", "Kenya", "Peru"}
	for i, country := range countries {
		c.Accept(beacon(fmt.Sprintf("dev%d", i), "x", country), -70, at(i))
	}

	got := c.Collected()
	want := []string{"Japan", "Peru", "Kenya"}
	if len(got) != len(want) {
		t.Fatalf("Collected() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Collected() = %v, want %v", got, want)
		}
	}
	if n.Pending() != 3 {
		t.Fatalf("Pending() = %d, want 3", n.Pending())
	}
	if ind.Calls() != 3 {
		t.Fatalf("Flash calls = %d, want 3", ind.Calls())
	}
}

func TestCollectorHistoryLimit(t *testing.T) {
	c, _, dir := newTestCollector(t, "self", nil)

	total := defaultHistoryLimit + 25
	for i := 0; i < total; i++ {
		res, err := c.Accept(beacon(fmt.Sprintf("dev%d", i), "x", ""), -70, at(i))
		if err != nil {
			t.Fatalf("Accept(%d) error = %v", i, err)
		}
		if h, _ := c.Counts(); h > defaultHistoryLimit {
			t.Fatalf("history grew to %d", h)
		}
		if i >= defaultHistoryLimit && res.Evicted != 1 {
			t.Fatalf("Accept(%d).Evicted = %d", i, res.Evicted)
		}
	}

	history := c.History()
	if len(history) != defaultHistoryLimit {
		t.Fatalf("len(history) = %d", len(history))
	}
	if history[0].ID != "dev25" || history[len(history)-1].ID != fmt.Sprintf("dev%d", total-1) {
		t.Fatalf("history spans %s..%s", history[0].ID, history[len(history)-1].ID)
	}

	reloaded := NewCollector(CollectorOptions{
		Self:          "self",
		HistoryPath:   filepath.Join(dir, historyFile),
		CollectedPath: filepath.Join(dir, collectedFile),
	})
	if h, _ := reloaded.Counts(); h != defaultHistoryLimit {
		t.Fatalf("reloaded history = %d", h)
	}
}

func TestCollectorPersistsAndReloads(t *testing.T) {
	c, _, dir := newTestCollector(t, "self", nil)
	c.Accept(beacon("AAA", "Alice", "Japan"), -60, at(0))
	c.Accept(beacon("CCC", "Carol", "Chile"), -90, at(30))

	reloaded := NewCollector(CollectorOptions{
		Self:          "self",
		HistoryPath:   filepath.Join(dir, historyFile),
		CollectedPath: filepath.Join(dir, collectedFile),
	})
	snap := reloaded.Snapshot()
	if len(snap.History) != 2 || snap.History[1].Name != "Carol" || snap.History[1].RSSI != -90 {
		t.Fatalf("reloaded history = %+v", snap.History)
	}
	if len(snap.Collected) != 2 || snap.Collected[0] != "Japan" {
		t.Fatalf("reloaded collected = %v", snap.Collected)
	}
}

func TestCollectorCorruptFilesStartEmpty(t *testing.T) {
	dir := t.TempDir()
	historyPath := filepath.Join(dir, historyFile)
	collectedPath := filepath.Join(dir, collectedFile)
	os.WriteFile(historyPath, []byte(`[{"id":"AAA","name":`), 0644)
	os.WriteFile(collectedPath, []byte(`{"not":"a list"}`), 0644)

	c := NewCollector(CollectorOptions{Self: "self", HistoryPath: historyPath, CollectedPath: collectedPath})
	if h, col := c.Counts(); h != 0 || col != 0 {
		t.Fatalf("Counts() = %d, %d", h, col)
	}

	// Missing files too.
	c = NewCollector(CollectorOptions{
		Self:          "self",
		HistoryPath:   filepath.Join(dir, "missing-history.json"),
		CollectedPath: filepath.Join(dir, "missing-collected.json"),
	})
	if h, col := c.Counts(); h != 0 || col != 0 {
		t.Fatalf("Counts() = %d, %d", h, col)
	}
}

func TestCollectorDeduplicatesLoadedSet(t *testing.T) {
	dir := t.TempDir()
	collectedPath := filepath.Join(dir, collectedFile)
	os.WriteFile(collectedPath, []byte(`["Japan","Japan","","Peru"]`), 0644)

	c := NewCollector(CollectorOptions{Self: "self", HistoryPath: filepath.Join(dir, historyFile), CollectedPath: collectedPath})
	if got := c.Collected(); len(got) != 2 {
		t.Fatalf("Collected() = %v", got)
	}
}

func TestCollectorResetCollected(t *testing.T) {
	c, n, dir := newTestCollector(t, "self", nil)
	c.Accept(beacon("AAA", "Alice", "Japan"), -70, at(0))
	n.Drain()

	if err := c.ResetCollected(); err != nil {
		t.Fatalf("ResetCollected() error = %v", err)
	}
	if _, col := c.Counts(); col != 0 {
		t.Fatalf("collected = %d after reset", col)
	}

	reloaded := NewCollector(CollectorOptions{
		Self:          "self",
		HistoryPath:   filepath.Join(dir, historyFile),
		CollectedPath: filepath.Join(dir, collectedFile),
	})
	if _, col := reloaded.Counts(); col != 0 {
		t.Fatalf("reloaded collected = %d", col)
	}

	// Japan can be collected again.
	res, _ := c.Accept(beacon("CCC", "Carol", "Japan"), -70, at(60))
	if !res.NewCountry || n.Pending() != 1 {
		t.Fatalf("Accept after reset = %+v, pending %d", res, n.Pending())
	}
}

func TestCollectorClearHistory(t *testing.T) {
	c, _, _ := newTestCollector(t, "self", nil)
	c.Accept(beacon("AAA", "Alice", "Japan"), -70, at(0))

	if err := c.ClearHistory(); err != nil {
		t.Fatalf("ClearHistory() error = %v", err)
	}
	if h, col := c.Counts(); h != 0 || col != 1 {
		t.Fatalf("Counts() = %d, %d", h, col)
	}
}

func TestCollectorPersistFailureKeepsMemory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	c := NewCollector(CollectorOptions{
		Self:          "self",
		HistoryPath:   filepath.Join(dir, historyFile),
		CollectedPath: filepath.Join(dir, collectedFile),
	})

	res, err := c.Accept(beacon("AAA", "Alice", "Japan"), -70, at(0))
	if !errors.Is(err, ErrPersist) {
		t.Fatalf("Accept() error = %v, want ErrPersist", err)
	}
	if !res.Recorded || !res.NewCountry {
		t.Fatalf("Accept() = %+v", res)
	}
	if h, col := c.Counts(); h != 1 || col != 1 {
		t.Fatalf("Counts() = %d, %d", h, col)
	}
}

func TestCollectorRecent(t *testing.T) {
	c, _, _ := newTestCollector(t, "self", nil)
	for i := 0; i < 5; i++ {
		c.Accept(beacon(fmt.Sprintf("dev%d", i), fmt.Sprintf("n%d", i), ""), -70, at(i))
	}

	recent := c.Recent(3)
	if len(recent) != 3 || recent[0].ID != "dev4" || recent[2].ID != "dev2" {
		t.Fatalf("Recent(3) = %+v", recent)
	}
	if all := c.Recent(0); len(all) != 5 || all[4].ID != "dev0" {
		t.Fatalf("Recent(0) = %+v", all)
	}
	if all := c.Recent(50); len(all) != 5 {
		t.Fatalf("Recent(50) = %d entries", len(all))
	}
}

func TestCollectorConcurrentReaders(t *testing.T) {
	c, _, _ := newTestCollector(t, "self", nil)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			c.Accept(beacon(fmt.Sprintf("dev%d", i), "x", fmt.Sprintf("C%d", i%20)), -70, at(i))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			snap := c.Snapshot()
			if len(snap.Collected) > len(snap.History) {
				t.Errorf("torn snapshot: %d collected, %d history", len(snap.Collected), len(snap.History))
				return
			}
		}
	}()
	wg.Wait()

	if h, col := c.Counts(); h != 200 || col != 20 {
		t.Fatalf("Counts() = %d, %d", h, col)
	}
}
