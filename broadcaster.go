package main

import (
	"context"
	"log"
	"time"
)

const (
	statusBeaconSent = "Beacon sent"
	statusTxError    = "TX error"
	statusNoRadio    = "LoRa not init"
)

// TickResult is the outcome of one broadcast attempt.
type TickResult struct {
	Sent bool
	Err  error
}

// Broadcaster transmits the current profile on a fixed period.
type Broadcaster struct {
	radio    Radio
	profiles *ProfileStore
	id       DeviceID
	status   *Status
	interval time.Duration
}

func NewBroadcaster(radio Radio, profiles *ProfileStore, id DeviceID, status *Status, interval time.Duration) *Broadcaster {
	if interval <= 0 {
		interval = defaultTxInterval
	}
	return &Broadcaster{
		radio:    radio,
		profiles: profiles,
		id:       id,
		status:   status,
		interval: interval,
	}
}

// Tick sends one beacon. Failures only change the status; the next tick
// tries again.
func (b *Broadcaster) Tick() (res TickResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("TX panic: %v", r)
			b.status.Set(statusTxError)
			res = TickResult{Err: errPanic(r)}
		}
	}()

	if b.radio == nil {
		b.status.Set(statusNoRadio)
		return TickResult{Err: ErrRadioClosed}
	}

	data, err := EncodePacket(b.profiles.Get(), b.id)
	if err == nil {
		err = b.radio.Send(data)
	}
	if err != nil {
		log.Printf("TX error: %v", err)
		b.status.Set(statusTxError)
		return TickResult{Err: err}
	}

	b.status.Set(statusBeaconSent)
	return TickResult{Sent: true}
}

// Run ticks until ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.Tick()
		case <-ctx.Done():
			return
		}
	}
}
