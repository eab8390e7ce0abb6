package main

import (
	"fmt"
	"strings"

	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/nexus-gamemaster/internal/services/events"
)

// feedStats counts events by outcome for the side panel.
type feedStats struct {
	Detected  int
	Resolved  int
	Failed    int
	Fallbacks int
	TotalXP   int
}

func (s *feedStats) add(ev events.Event) {
	switch ev.Type {
	case events.EventTypeAdventureDetected:
		s.Detected++
	case events.EventTypeAdventureResolved:
		s.Resolved++
		if fb, _ := ev.Data["fallback"].(bool); fb {
			s.Fallbacks++
		}
		s.TotalXP += dataInt(ev.Data, "xp")
	case events.EventTypeAdventureFailed:
		s.Failed++
	}
}

// dataInt reads a JSON number; decoded payloads carry float64.
func dataInt(data map[string]interface{}, key string) int {
	switch v := data[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

func dataString(data map[string]interface{}, key string) string {
	s, _ := data[key].(string)
	return s
}

// formatEvent renders one feed entry wrapped to width.
func formatEvent(ev events.Event, width int) string {
	if width < 20 {
		width = 20
	}
	stamp := ev.Timestamp.Local().Format("15:04:05")
	hero := "#" + ev.TokenID

	var b strings.Builder
	switch ev.Type {
	case events.EventTypeAdventureDetected:
		line := fmt.Sprintf("%s %s %s", stamp, heroStyle.Render(hero), detectedStyle.Render("requested"))
		if action := dataString(ev.Data, "action"); action != "" {
			line += fmt.Sprintf(" %q", action)
		} else {
			line += " a prologue"
		}
		b.WriteString(line)

	case events.EventTypeAdventureResolved:
		xp := dataInt(ev.Data, "xp")
		b.WriteString(fmt.Sprintf("%s %s %s xp=%d", stamp, heroStyle.Render(hero), resolvedStyle.Render("resolved"), xp))
		if fb, _ := ev.Data["fallback"].(bool); fb {
			b.WriteString(" " + fallbackStyle.Render("(fallback)"))
		}
		if story := dataString(ev.Data, "story"); story != "" {
			b.WriteString("\n" + storyStyle.Render(wordwrap.String(story, width-2)))
		}
		if uri := dataString(ev.Data, "uri"); uri != "" {
			b.WriteString("\n" + mutedStyle.Render(uri))
		}

	case events.EventTypeAdventureFailed:
		b.WriteString(fmt.Sprintf("%s %s %s", stamp, heroStyle.Render(hero), errorStyle.Render("failed")))
		if msg := dataString(ev.Data, "error"); msg != "" {
			b.WriteString("\n" + errorStyle.Render(wordwrap.String(msg, width-2)))
		}

	default:
		b.WriteString(fmt.Sprintf("%s %s %s", stamp, hero, ev.Type))
	}
	return b.String()
}
