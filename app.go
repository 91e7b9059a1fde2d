package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
)

const (
	profileFile   = "profile.json"
	historyFile   = "history.json"
	collectedFile = "collected.json"
	countriesFile = "countries.json"
	logFile       = "lorapass.log"
)

// App owns every component and the lifetime of the background loops.
type App struct {
	ID        DeviceID
	Config    *Config
	Status    *Status
	Profiles  *ProfileStore
	Countries []string
	Notifier  *Notifier
	Collector *Collector

	radio       Radio
	broadcaster *Broadcaster
	receiver    *Receiver

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewApp loads persisted state. When radio is nil and the config allows it
// the multicast radio is opened; if that fails the app runs without one.
func NewApp(cfg *Config, radio Radio, ind Indicator) (*App, error) {
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create app directory: %w", err)
	}

	id := DeviceID(cfg.DeviceID)
	if id == "" {
		var err error
		if id, err = LoadDeviceID(cfg.Dir); err != nil {
			return nil, err
		}
	}

	countries := LoadCountries(cfg.path(countriesFile))
	notifier := NewNotifier(ind)
	app := &App{
		ID:        id,
		Config:    cfg,
		Status:    NewStatus("starting..."),
		Profiles:  LoadProfileStore(cfg.path(profileFile), countries, id),
		Countries: countries,
		Notifier:  notifier,
		Collector: NewCollector(CollectorOptions{
			Self:          id,
			HistoryPath:   cfg.path(historyFile),
			CollectedPath: cfg.path(collectedFile),
			Cooldown:      cfg.Cooldown,
			Limit:         cfg.HistoryLimit,
			Notifier:      notifier,
		}),
	}

	if radio == nil && !cfg.DisableRadio {
		mr, err := OpenMulticastRadio(cfg.MulticastAddr)
		if err != nil {
			log.Printf("Warning: %v", err)
			log.Printf("Continuing without radio. Profile and history are still available.")
		} else {
			radio = mr
		}
	}
	if radio != nil {
		app.radio = radio
		app.broadcaster = NewBroadcaster(radio, app.Profiles, id, app.Status, cfg.TxInterval)
		app.receiver = NewReceiver(radio, app.Collector, id, app.Status, cfg.RxPoll)
	}
	return app, nil
}

// RadioReady reports whether beacons are being sent and received.
func (a *App) RadioReady() bool {
	return a.radio != nil
}

// Start launches the broadcaster and receiver.
func (a *App) Start(ctx context.Context) {
	log.Printf("%s device %s starting", appName, a.ID)
	if a.radio == nil {
		a.Status.Set("LoRa not ready")
		return
	}

	ctx, a.cancel = context.WithCancel(ctx)
	a.Status.Set("Running")

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.broadcaster.Run(ctx)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.receiver.Run(ctx)
	}()
}

// Beacon sends one beacon now, outside the regular schedule.
func (a *App) Beacon() TickResult {
	if a.broadcaster == nil {
		a.Status.Set(statusNoRadio)
		return TickResult{Err: ErrRadioClosed}
	}
	return a.broadcaster.Tick()
}

func (a *App) Stats() ReceiverStats {
	if a.receiver == nil {
		return ReceiverStats{}
	}
	return a.receiver.Stats()
}

// Stop cancels the loops, waits for them and closes the radio.
func (a *App) Stop() {
	a.stopOnce.Do(func() {
		if a.cancel != nil {
			a.cancel()
		}
		a.wg.Wait()
		if a.radio != nil {
			if err := a.radio.Close(); err != nil {
				log.Printf("Radio close error: %v", err)
			}
		}
		log.Printf("%s device %s shut down", appName, a.ID)
	})
}
