package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"
)

// ReceiverStats counts what the receive loop has seen.
type ReceiverStats struct {
	Frames     uint64 `json:"frames"`
	Recorded   uint64 `json:"recorded"`
	Duplicates uint64 `json:"duplicates"`
	Foreign    uint64 `json:"foreign"`
	Self       uint64 `json:"self"`
	Errors     uint64 `json:"errors"`
}

// Receiver polls the radio and feeds decoded beacons to the Collector.
type Receiver struct {
	radio     Radio
	collector *Collector
	id        DeviceID
	status    *Status
	poll      time.Duration
	now       func() time.Time

	frames, recorded, duplicates, foreign, self, errs atomic.Uint64
}

func NewReceiver(radio Radio, collector *Collector, id DeviceID, status *Status, poll time.Duration) *Receiver {
	if poll <= 0 {
		poll = defaultRxPoll
	}
	return &Receiver{
		radio:     radio,
		collector: collector,
		id:        id,
		status:    status,
		poll:      poll,
		now:       time.Now,
	}
}

// Run polls until ctx is cancelled or the radio is closed.
func (r *Receiver) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		frame, err := r.radio.Receive(r.poll)
		switch {
		case err == nil:
			r.HandleFrame(frame)
		case errors.Is(err, ErrNoFrame):
		case errors.Is(err, ErrRadioClosed):
			return
		default:
			r.errs.Add(1)
			log.Printf("RX loop error: %v", err)
			select {
			case <-time.After(r.poll):
			case <-ctx.Done():
				return
			}
		}
	}
}

// HandleFrame processes one frame. Nothing a frame contains can stop the
// loop: foreign traffic is dropped and handler failures are logged.
func (r *Receiver) HandleFrame(frame Frame) {
	defer func() {
		if p := recover(); p != nil {
			r.errs.Add(1)
			log.Printf("RX handler panic: %v", p)
		}
	}()

	r.frames.Add(1)
	pkt, err := DecodePacket(frame.Data)
	if err != nil {
		r.foreign.Add(1)
		return
	}
	if DeviceID(pkt.ID) == r.id {
		r.self.Add(1)
		return
	}

	res, err := r.collector.Accept(pkt, frame.RSSI, r.now())
	if err != nil {
		r.errs.Add(1)
		log.Printf("Failed to save encounter with %s: %v", pkt.ID, err)
	}
	r.status.Set(fmt.Sprintf("StreetPass from %s", displayName(pkt.Name)))
	if res.Duplicate {
		r.duplicates.Add(1)
		return
	}
	if res.Recorded {
		r.recorded.Add(1)
	}
	if res.NewCountry {
		log.Printf("Collected new country %s from %s", pkt.Country, displayName(pkt.Name))
	}
}

func (r *Receiver) Stats() ReceiverStats {
	return ReceiverStats{
		Frames:     r.frames.Load(),
		Recorded:   r.recorded.Load(),
		Duplicates: r.duplicates.Load(),
		Foreign:    r.foreign.Load(),
		Self:       r.self.Load(),
		Errors:     r.errs.Load(),
	}
}

func displayName(name string) string {
	if name == "" {
		return "?"
	}
	return name
}

func errPanic(v any) error {
	return fmt.Errorf("panic: %v", v)
}
