package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jwebster45206/nexus-gamemaster/internal/services/events"
)

// maxFeedEntries bounds the scrollback kept in memory.
const maxFeedEntries = 500

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       ConsoleConfig
	feed         <-chan events.Event
	entries      []events.Event
	stats        feedStats
	feedViewport viewport.Model
	metaViewport viewport.Model
	ready        bool
	closed       bool
	width        int
	height       int
}

type feedEventMsg events.Event

type feedClosedMsg struct{}

var (
	feedPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingLeft(2)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	heroStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	detectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	resolvedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	storyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	fallbackStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey
)

func NewConsoleUI(cfg ConsoleConfig, feed <-chan events.Event) ConsoleUI {
	feedVp := viewport.New(60, 20)
	feedVp.MouseWheelEnabled = true

	return ConsoleUI{
		config:       cfg,
		feed:         feed,
		feedViewport: feedVp,
		metaViewport: viewport.New(24, 20),
	}
}

// waitForEvent turns the next feed event into a tea message.
func waitForEvent(feed <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-feed
		if !ok {
			return feedClosedMsg{}
		}
		return feedEventMsg(ev)
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return waitForEvent(m.feed)
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			return m, tea.Quit
		case "c":
			m.entries = nil
			m.stats = feedStats{}
			m.render()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		feedWidth := int(float64(m.width)*0.72) - 2
		m.feedViewport.Width = feedWidth
		m.feedViewport.Height = m.height - 2
		m.metaViewport.Width = m.width - feedWidth - 4
		m.metaViewport.Height = m.height - 2
		m.ready = true
		m.render()

	case feedEventMsg:
		ev := events.Event(msg)
		m.entries = append(m.entries, ev)
		if len(m.entries) > maxFeedEntries {
			m.entries = m.entries[len(m.entries)-maxFeedEntries:]
		}
		m.stats.add(ev)
		m.render()
		return m, waitForEvent(m.feed)

	case feedClosedMsg:
		m.closed = true
		m.render()
		return m, nil
	}

	m.feedViewport, cmd = m.feedViewport.Update(msg)
	return m, cmd
}

// render rebuilds both panels for the current width.
func (m *ConsoleUI) render() {
	width := m.feedViewport.Width - 2

	var content strings.Builder
	content.WriteString(titleStyle.Render("NEXUS GAME MASTER") + "\n")
	content.WriteString(mutedStyle.Render("channel "+m.config.Channel()) + "\n\n")
	if len(m.entries) == 0 {
		content.WriteString(mutedStyle.Render("Waiting for adventure requests...") + "\n")
	}
	for _, ev := range m.entries {
		content.WriteString(formatEvent(ev, width) + "\n\n")
	}
	if m.closed {
		content.WriteString(errorStyle.Render("Feed closed.") + "\n")
	}

	m.feedViewport.SetContent(content.String())
	m.feedViewport.GotoBottom()
	m.metaViewport.SetContent(writeStats(m.stats))
}

func writeStats(s feedStats) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("SESSION") + "\n\n")
	content.WriteString(fmt.Sprintf("Detected:  %d\n", s.Detected))
	content.WriteString(fmt.Sprintf("Resolved:  %d\n", s.Resolved))
	content.WriteString(fmt.Sprintf("Failed:    %d\n", s.Failed))
	content.WriteString(fmt.Sprintf("Fallbacks: %d\n", s.Fallbacks))
	content.WriteString(fmt.Sprintf("XP given:  %d\n", s.TotalXP))

	content.WriteString("\nKeys:\n")
	content.WriteString("• q / Ctrl+C: Quit\n")
	content.WriteString("• c: Clear\n")
	content.WriteString("• ↑/↓: Scroll\n")
	return content.String()
}

func (m ConsoleUI) View() string {
	if !m.ready {
		return "Connecting..."
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		feedPanelStyle.Render(m.feedViewport.View()),
		metaPanelStyle.Render(m.metaViewport.View()),
	)
}
