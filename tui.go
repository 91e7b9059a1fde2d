package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Styles for the TUI
var (
	primaryColor    = lipgloss.Color("#7C3AED") // Purple
	accentColor     = lipgloss.Color("#10B981") // Green
	warningColor    = lipgloss.Color("#F59E0B") // Amber
	errorColor      = lipgloss.Color("#EF4444") // Red
	mutedColor      = lipgloss.Color("#6B7280") // Gray
	backgroundColor = lipgloss.Color("#1F2937") // Dark gray

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Background(backgroundColor).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6"))

	toastStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	warningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	collectedStyle = lipgloss.NewStyle().
			Foreground(accentColor)

	timestampStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Faint(true)
)

type screen int

const (
	screenMain screen = iota
	screenProfile
	screenHistory
	screenCountries
	screenReset
)

const (
	fieldName = iota
	fieldCountry
	fieldFavorite
	fieldFutureOS
	fieldMessage
	fieldCount
)

const toastDuration = 5 * time.Second

// UI is the bubbletea model.
type UI struct {
	app    *App
	screen screen

	inputs  []textinput.Model
	focus   int
	formErr string

	viewport viewport.Model
	ready    bool
	width    int
	height   int

	historyCount   int
	collectedCount int
	last           Encounter
	hasLast        bool
	lastUpdate     time.Time

	toast      string
	toastUntil time.Time
}

// tickMsg is sent periodically to refresh counters and drain the notifier
type tickMsg time.Time

func NewUI(app *App) *UI {
	labels := [fieldCount]string{"Name", "Country", "Favorite place", "Future OS", "Message"}
	limits := [fieldCount]int{24, 48, 32, 24, MaxMessageLen}

	inputs := make([]textinput.Model, fieldCount)
	for i := range inputs {
		ti := textinput.New()
		ti.Prompt = fmt.Sprintf("%-15s ", labels[i])
		ti.CharLimit = limits[i]
		ti.Width = 40
		inputs[i] = ti
	}
	inputs[fieldCountry].ShowSuggestions = true
	inputs[fieldCountry].SetSuggestions(app.Countries)

	ui := &UI{
		app:      app,
		inputs:   inputs,
		viewport: viewport.New(80, 20),
	}
	ui.refresh(time.Now())
	return ui
}

func (ui *UI) Init() tea.Cmd {
	return ui.tickCmd()
}

func (ui *UI) tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// refresh copies what the view needs out of the collector in one pass.
func (ui *UI) refresh(now time.Time) {
	ui.historyCount, ui.collectedCount = ui.app.Collector.Counts()
	ui.last, ui.hasLast = ui.app.Collector.Last()
	ui.lastUpdate = now

	if n := ui.app.Notifier.Drain(); n > 0 {
		ui.showToast(fmt.Sprintf("New country collected: %d (%s)", n, ui.app.Notifier.LastCountry()), now)
	}
}

func (ui *UI) showToast(text string, now time.Time) {
	ui.toast = text
	ui.toastUntil = now.Add(toastDuration)
}

func (ui *UI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		ui.width = msg.Width
		ui.height = msg.Height
		ui.ready = true
		ui.viewport.Width = max(msg.Width-4, 20)
		ui.viewport.Height = max(msg.Height-8, 5)
		return ui, nil

	case tickMsg:
		ui.refresh(time.Time(msg))
		return ui, ui.tickCmd()

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return ui, tea.Quit
		}
		switch ui.screen {
		case screenMain:
			return ui.updateMain(msg)
		case screenProfile:
			return ui.updateProfile(msg)
		case screenReset:
			return ui.updateReset(msg)
		case screenHistory, screenCountries:
			switch msg.String() {
			case "esc", "q":
				ui.screen = screenMain
				return ui, nil
			}
		}
	}

	if ui.screen == screenHistory || ui.screen == screenCountries {
		var cmd tea.Cmd
		ui.viewport, cmd = ui.viewport.Update(msg)
		return ui, cmd
	}
	return ui, nil
}

func (ui *UI) updateMain(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return ui, tea.Quit
	case "p":
		return ui, ui.openProfile()
	case "h":
		ui.viewport.SetContent(ui.renderHistory())
		ui.viewport.GotoTop()
		ui.screen = screenHistory
	case "c":
		ui.viewport.SetContent(ui.renderCountries())
		ui.viewport.GotoTop()
		ui.screen = screenCountries
	case "r":
		ui.screen = screenReset
	case "b":
		if res := ui.app.Beacon(); res.Err != nil {
			ui.showToast(fmt.Sprintf("Beacon failed: %v", res.Err), time.Now())
		}
	}
	return ui, nil
}

func (ui *UI) openProfile() tea.Cmd {
	p := ui.app.Profiles.Get()
	values := [fieldCount]string{p.Name, p.Country, p.Favorite, p.FutureOS, p.Message}
	for i := range ui.inputs {
		ui.inputs[i].SetValue(values[i])
		ui.inputs[i].Blur()
	}
	ui.formErr = ""
	ui.screen = screenProfile
	return ui.focusField(fieldName)
}

func (ui *UI) focusField(i int) tea.Cmd {
	ui.inputs[ui.focus].Blur()
	ui.focus = (i + fieldCount) % fieldCount
	return ui.inputs[ui.focus].Focus()
}

func (ui *UI) updateProfile(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		ui.screen = screenMain
		return ui, nil
	case "shift+tab", "up":
		return ui, ui.focusField(ui.focus - 1)
	case "tab":
		// Tab completes the country from suggestions.
		if ui.focus != fieldCountry {
			return ui, ui.focusField(ui.focus + 1)
		}
	case "enter":
		if ui.focus < fieldCount-1 {
			return ui, ui.focusField(ui.focus + 1)
		}
		return ui, ui.saveProfile()
	}

	var cmd tea.Cmd
	ui.inputs[ui.focus], cmd = ui.inputs[ui.focus].Update(msg)
	return ui, cmd
}

func (ui *UI) saveProfile() tea.Cmd {
	country, ok := CanonicalCountry(ui.app.Countries, ui.inputs[fieldCountry].Value())
	if !ok {
		ui.formErr = fmt.Sprintf("Unknown country %q", ui.inputs[fieldCountry].Value())
		return ui.focusField(fieldCountry)
	}

	p := Profile{
		Name:     ui.inputs[fieldName].Value(),
		Country:  country,
		Favorite: ui.inputs[fieldFavorite].Value(),
		FutureOS: ui.inputs[fieldFutureOS].Value(),
		Message:  ui.inputs[fieldMessage].Value(),
	}
	now := time.Now()
	err := ui.app.Profiles.Edit(p)
	if errors.Is(err, ErrBeaconTooLarge) {
		ui.formErr = "Too long to broadcast, shorten a field"
		return nil
	}
	if err != nil {
		ui.showToast(fmt.Sprintf("Profile not saved: %v", err), now)
	} else {
		ui.showToast("Profile saved", now)
	}
	ui.app.Status.Set("Profile updated")
	ui.inputs[ui.focus].Blur()
	ui.screen = screenMain
	return nil
}

func (ui *UI) updateReset(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	now := time.Now()
	switch msg.String() {
	case "y", "Y":
		if err := ui.app.Collector.ResetCollected(); err != nil {
			ui.showToast(fmt.Sprintf("Reset not saved: %v", err), now)
		} else {
			ui.showToast("Collected cleared", now)
		}
		ui.refresh(now)
		ui.screen = screenMain
	case "n", "N", "esc", "q":
		ui.screen = screenMain
	}
	return ui, nil
}

func (ui *UI) View() string {
	if !ui.ready {
		return "\n  Initializing LoRaPass...\n"
	}

	header := headerStyle.Render("📡 " + appName)

	var body string
	switch ui.screen {
	case screenProfile:
		body = ui.renderProfileForm()
	case screenHistory:
		body = panelStyle.Width(ui.width - 2).Render("History (most recent first)\n" + ui.viewport.View())
	case screenCountries:
		body = panelStyle.Width(ui.width - 2).Render("Countries collected\n" + ui.viewport.View())
	case screenReset:
		body = panelStyle.Width(ui.width - 2).Render(
			warningStyle.Render("Erase collected countries?") + "\n\n  y = yes, n = no")
	default:
		body = ui.renderMain()
	}

	parts := []string{header, body}
	if ui.toast != "" && ui.lastUpdate.Before(ui.toastUntil) {
		parts = append(parts, toastStyle.Render(ui.toast))
	}
	parts = append(parts, ui.renderStatusBar())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (ui *UI) renderMain() string {
	var b strings.Builder

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-11s", label)))
		b.WriteString(valueStyle.Render(value))
		b.WriteString("\n")
	}

	status := ui.app.Status.Get()
	if !ui.app.RadioReady() {
		status = errorStyle.Render(status)
	}
	b.WriteString(labelStyle.Render(fmt.Sprintf("%-11s", "Status")) + status + "\n")
	row("Collected", fmt.Sprintf("%d", ui.collectedCount))
	row("Passes", fmt.Sprintf("%d", ui.historyCount))
	if ui.hasLast {
		row("Last", fmt.Sprintf("%s (%d, %s)", displayName(ui.last.Name), ui.last.RSSI, Proximity(ui.last.RSSI)))
	} else {
		row("Last", "none")
	}
	p := ui.app.Profiles.Get()
	row("You", fmt.Sprintf("%s from %s", p.Name, p.Country))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("p profile · h history · c countries · r reset collected · b beacon · q quit"))

	return panelStyle.Width(ui.width - 2).Render(b.String())
}

func (ui *UI) renderProfileForm() string {
	var b strings.Builder
	b.WriteString("Edit profile\n\n")
	for i := range ui.inputs {
		b.WriteString(ui.inputs[i].View())
		b.WriteString("\n")
	}
	if ui.formErr != "" {
		b.WriteString("\n" + errorStyle.Render(ui.formErr) + "\n")
	}
	b.WriteString("\n" + labelStyle.Render("enter next/save · shift+tab back · tab complete country · esc cancel"))
	return panelStyle.Width(ui.width - 2).Render(b.String())
}

func (ui *UI) renderHistory() string {
	recent := ui.app.Collector.Recent(historyViewLimit)
	if len(recent) == 0 {
		return "No history yet"
	}
	var b strings.Builder
	for _, e := range recent {
		b.WriteString(timestampStyle.Render(e.At().Format("2006-01-02 15:04:05")))
		b.WriteString(fmt.Sprintf(" | %s | %s | RSSI %d (%s)\n", displayName(e.Name), e.Country, e.RSSI, Proximity(e.RSSI)))
		if e.Message != "" {
			b.WriteString(labelStyle.Render("    " + e.Message))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (ui *UI) renderCountries() string {
	snap := ui.app.Collector.Snapshot()
	have := make(map[string]bool, len(snap.Collected))
	for _, c := range snap.Collected {
		have[c] = true
	}

	var b strings.Builder
	for _, c := range ui.app.Countries {
		if have[c] {
			b.WriteString(collectedStyle.Render("✓ " + c))
		} else {
			b.WriteString("  " + c)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (ui *UI) renderStatusBar() string {
	left := fmt.Sprintf("Device: %s", ui.app.ID)
	stats := ui.app.Stats()
	right := fmt.Sprintf("Frames: %d | Dup: %d | %s", stats.Frames, stats.Duplicates, ui.lastUpdate.Format("15:04:05"))

	spacing := ui.width - 4 - lipgloss.Width(left) - lipgloss.Width(right)
	if spacing < 0 {
		spacing = 0
	}
	return statusBarStyle.Width(ui.width - 2).Render(left + strings.Repeat(" ", spacing) + right)
}
