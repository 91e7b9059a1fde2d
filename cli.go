package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

const (
	indicatorCheckInterval = 5 * time.Second
	historyViewLimit       = 50
)

// CLI is the line-oriented front end.
type CLI struct {
	app   *App
	in    io.Reader
	out   io.Writer
	check time.Duration
}

func NewCLI(app *App, in io.Reader, out io.Writer) *CLI {
	return &CLI{app: app, in: in, out: out, check: indicatorCheckInterval}
}

// Run reads commands until /quit, end of input or ctx is cancelled.
func (c *CLI) Run(ctx context.Context) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	ticker := time.NewTicker(c.check)
	defer ticker.Stop()

	fmt.Fprintln(c.out, "Commands: /help for help, /quit to exit")
	fmt.Fprint(c.out, "> ")
	for {
		select {
		case line := <-lines:
			if quit := c.Handle(line); quit {
				return nil
			}
			fmt.Fprint(c.out, "> ")

		case err := <-readErr:
			if err != nil {
				return fmt.Errorf("CLI read error: %w", err)
			}
			return nil

		case <-ticker.C:
			c.checkIndicator()

		case <-ctx.Done():
			return nil
		}
	}
}

// Handle runs one command line and reports whether the user asked to quit.
func (c *CLI) Handle(input string) bool {
	input = strings.TrimSpace(input)
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "/quit", "/exit":
		return true

	case "/profile":
		c.showProfile()

	case "/set":
		if len(fields) < 3 {
			fmt.Fprintln(c.out, "Usage: /set <name|country|favorite|future_os|message> <value>")
			return false
		}
		rest := strings.TrimSpace(input[len(fields[0]):])
		value := strings.TrimSpace(strings.TrimPrefix(rest, fields[1]))
		c.setField(fields[1], value)

	case "/history":
		n := historyViewLimit
		if len(fields) > 1 {
			if v, err := strconv.Atoi(fields[1]); err == nil && v > 0 {
				n = v
			}
		}
		c.showHistory(n)

	case "/countries":
		c.showCountries()

	case "/collected":
		collected := c.app.Collector.Collected()
		fmt.Fprintf(c.out, "Collected %d: %s\n", len(collected), strings.Join(collected, ", "))

	case "/reset":
		if err := c.app.Collector.ResetCollected(); err != nil {
			fmt.Fprintf(c.out, "Reset saved in memory only: %v\n", err)
		} else {
			fmt.Fprintln(c.out, "Collected cleared")
		}

	case "/status":
		c.showStatus()

	case "/beacon":
		if res := c.app.Beacon(); res.Err != nil {
			fmt.Fprintf(c.out, "Beacon failed: %v\n", res.Err)
		} else {
			fmt.Fprintln(c.out, "Beacon sent")
		}

	case "/help":
		c.showHelp()

	default:
		fmt.Fprintf(c.out, "Unknown command %q, try /help\n", fields[0])
	}
	return false
}

func (c *CLI) setField(field, value string) {
	if field == "country" {
		canonical, ok := CanonicalCountry(c.app.Countries, value)
		if !ok {
			fmt.Fprintf(c.out, "Unknown country %q, see /countries\n", value)
			return
		}
		value = canonical
	}

	err := c.app.Profiles.Set(field, value)
	var fieldErr *FieldError
	switch {
	case errors.As(err, &fieldErr):
		fmt.Fprintln(c.out, fieldErr.Error())
		return
	case errors.Is(err, ErrBeaconTooLarge):
		fmt.Fprintf(c.out, "Not saved, shorten a field: %v\n", err)
		return
	case err != nil:
		fmt.Fprintf(c.out, "Profile updated but not saved: %v\n", err)
	default:
		fmt.Fprintln(c.out, "Profile saved")
	}
	c.app.Status.Set("Profile updated")
}

func (c *CLI) checkIndicator() {
	if n := c.app.Notifier.Drain(); n > 0 {
		fmt.Fprintf(c.out, "\nNew country collected: %d\n> ", n)
	}
}

func (c *CLI) showProfile() {
	p := c.app.Profiles.Get()
	fmt.Fprintf(c.out, "Device:    %s\n", c.app.ID)
	fmt.Fprintf(c.out, "Name:      %s\n", p.Name)
	fmt.Fprintf(c.out, "Country:   %s\n", p.Country)
	fmt.Fprintf(c.out, "Favorite:  %s\n", p.Favorite)
	fmt.Fprintf(c.out, "Future OS: %s\n", p.FutureOS)
	fmt.Fprintf(c.out, "Message:   %s\n", p.Message)
}

func (c *CLI) showHistory(n int) {
	recent := c.app.Collector.Recent(n)
	if len(recent) == 0 {
		fmt.Fprintln(c.out, "No history yet")
		return
	}
	fmt.Fprintln(c.out, "History (most recent first):")
	for _, e := range recent {
		fmt.Fprintln(c.out, "  "+formatEncounter(e))
	}
}

func (c *CLI) showCountries() {
	collected := c.app.Collector.Snapshot().Collected
	have := make(map[string]bool, len(collected))
	for _, country := range collected {
		have[country] = true
	}
	for _, country := range c.app.Countries {
		mark := "  "
		if have[country] {
			mark = "✓ "
		}
		fmt.Fprintf(c.out, "%s%s\n", mark, country)
	}
}

func (c *CLI) showStatus() {
	history, collected := c.app.Collector.Counts()
	stats := c.app.Stats()
	fmt.Fprintf(c.out, "Status: %s\n", c.app.Status.Get())
	fmt.Fprintf(c.out, "Collected: %d  History: %d\n", collected, history)
	if last, ok := c.app.Collector.Last(); ok {
		fmt.Fprintf(c.out, "Last: %s (%d)\n", displayName(last.Name), last.RSSI)
	} else {
		fmt.Fprintln(c.out, "Last: none")
	}
	fmt.Fprintf(c.out, "Frames: %d  Recorded: %d  Duplicates: %d  Foreign: %d\n",
		stats.Frames, stats.Recorded, stats.Duplicates, stats.Foreign)
}

func (c *CLI) showHelp() {
	fmt.Fprint(c.out, `Available Commands:
  /profile                 Show your profile
  /set <field> <value>     Edit name, country, favorite, future_os or message
  /history [n]             Show the last n passes (default 50)
  /countries               Show every country, collected ones marked
  /collected               List collected countries
  /reset                   Erase collected countries
  /status                  Show radio and collection status
  /beacon                  Send a beacon now
  /help                    Show this help
  /quit                    Exit application
`)
}

// formatEncounter renders one history line.
func formatEncounter(e Encounter) string {
	return fmt.Sprintf("%s | %s | %s | RSSI %d (%s)",
		e.At().Format("2006-01-02 15:04:05"), displayName(e.Name), e.Country, e.RSSI, Proximity(e.RSSI))
}
