package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	var configPath string
	var dir string
	var group string
	var deviceID string
	var httpAddr string
	var useTUI bool
	var quiet bool
	var noRadio bool

	flag.StringVar(&configPath, "config", "", "YAML config file (default <dir>/config.yaml)")
	flag.StringVar(&dir, "dir", "", "directory for profile, history and collected countries")
	flag.StringVar(&group, "group", "", "multicast group standing in for the LoRa channel")
	flag.StringVar(&deviceID, "id", "", "device id to announce (default derived from the hardware address)")
	flag.StringVar(&httpAddr, "http", "", "serve a read-only status API on this address")
	flag.BoolVar(&useTUI, "tui", false, "use the terminal UI")
	flag.BoolVar(&quiet, "quiet", false, "no sound when a new country is collected")
	flag.BoolVar(&noRadio, "no-radio", false, "run without the radio (browse and edit only)")
	flag.Parse()

	if configPath == "" {
		base := dir
		if base == "" {
			base = DefaultConfig().Dir
		}
		configPath = filepath.Join(base, "config.yaml")
	}
	cfg, err := LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if dir != "" {
		cfg.Dir = dir
	}
	if group != "" {
		cfg.MulticastAddr = group
	}
	if deviceID != "" {
		cfg.DeviceID = deviceID
	}
	if httpAddr != "" {
		cfg.HTTPAddr = httpAddr
	}
	if quiet {
		cfg.Indicator = "none"
	}
	if noRadio {
		cfg.DisableRadio = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	if useTUI {
		if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
			log.Fatalf("Failed to create app directory: %v", err)
		}
		f, err := tea.LogToFile(cfg.path(logFile), appName+" ")
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer f.Close()
	}

	app, err := NewApp(cfg, nil, newIndicator(cfg.Indicator))
	if err != nil {
		log.Fatalf("Failed to start %s: %v", appName, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app.Start(ctx)
	defer app.Stop()

	if cfg.HTTPAddr != "" {
		go func() {
			if err := ServeAPI(ctx, cfg.HTTPAddr, app); err != nil {
				log.Printf("Status API error: %v", err)
			}
		}()
	}

	if useTUI {
		p := tea.NewProgram(NewUI(app), tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil && ctx.Err() == nil {
			log.Printf("Error running TUI: %v", err)
		}
		return
	}

	if err := NewCLI(app, os.Stdin, os.Stdout).Run(ctx); err != nil {
		log.Printf("%v", err)
	}
}

func newIndicator(kind string) Indicator {
	switch kind {
	case "none":
		return nopIndicator{}
	case "bell":
		return bellIndicator{w: os.Stdout}
	default:
		return NewSpeakerIndicator()
	}
}
