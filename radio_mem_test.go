package main

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// testEther connects memRadios the way a shared channel would: every frame
// sent reaches every radio, the sender included.
type testEther struct {
	mu     sync.Mutex
	radios []*memRadio
}

func (e *testEther) NewRadio(rssi int) *memRadio {
	r := &memRadio{
		ether: e,
		rssi:  rssi,
		inbox: make(chan Frame, 64),
		done:  make(chan struct{}),
	}
	e.mu.Lock()
	e.radios = append(e.radios, r)
	e.mu.Unlock()
	return r
}

func (e *testEther) deliver(data []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range e.radios {
		r.Inject(data)
	}
}

// memRadio is an in-memory Radio for tests.
type memRadio struct {
	ether *testEther
	rssi  int
	inbox chan Frame

	mu      sync.Mutex
	sent    [][]byte
	sendErr error

	done      chan struct{}
	closeOnce sync.Once
}

func newMemRadio() *memRadio {
	return (&testEther{}).NewRadio(-70)
}

func (r *memRadio) Send(data []byte) error {
	if len(data) > maxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(data))
	}
	r.mu.Lock()
	if r.sendErr != nil {
		err := r.sendErr
		r.mu.Unlock()
		return err
	}
	frame := make([]byte, len(data))
	copy(frame, data)
	r.sent = append(r.sent, frame)
	r.mu.Unlock()

	if r.ether != nil {
		r.ether.deliver(frame)
	}
	return nil
}

func (r *memRadio) Receive(timeout time.Duration) (Frame, error) {
	select {
	case <-r.done:
		return Frame{}, ErrRadioClosed
	default:
	}
	select {
	case f := <-r.inbox:
		return f, nil
	case <-time.After(timeout):
		return Frame{}, ErrNoFrame
	case <-r.done:
		return Frame{}, ErrRadioClosed
	}
}

func (r *memRadio) Close() error {
	r.closeOnce.Do(func() { close(r.done) })
	return nil
}

// Inject queues a frame as if it was heard on the air.
func (r *memRadio) Inject(data []byte) {
	frame := make([]byte, len(data))
	copy(frame, data)
	select {
	case r.inbox <- Frame{Data: frame, RSSI: r.rssi}:
	default:
	}
}

func (r *memRadio) SetSendErr(err error) {
	r.mu.Lock()
	r.sendErr = err
	r.mu.Unlock()
}

func (r *memRadio) Sent() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]byte, len(r.sent))
	copy(out, r.sent)
	return out
}

var errRadioDown = errors.New("radio down")

// countingIndicator records Flash calls.
type countingIndicator struct {
	mu    sync.Mutex
	calls []int
	err   error
}

func (c *countingIndicator) Flash(times int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, times)
	return c.err
}

func (c *countingIndicator) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
