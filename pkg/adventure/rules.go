package adventure

import (
	"strings"

	"golang.org/x/text/cases"
)

const (
	GameOverMarker = "[GAME OVER]"
	VictoryMarker  = "[VICTORY]"

	VictoryXP = 1000
	MaxStepXP = VictoryXP

	// FollowUpQuestion closes a story that ends without a question or marker.
	FollowUpQuestion = "What do you do?"
)

// PassivityKeywords zero the reward of any action that contains them.
var PassivityKeywords = []string{"run", "flee", "hide", "wait"}

var folder = cases.Fold()

// IsPassive reports whether the action text contains a passivity keyword,
// ignoring case.
func IsPassive(action string) bool {
	folded := folder.String(action)
	for _, kw := range PassivityKeywords {
		if strings.Contains(folded, kw) {
			return true
		}
	}
	return false
}

// IsGameOver reports whether the story carries the game-over marker.
func IsGameOver(story string) bool {
	return strings.Contains(story, GameOverMarker)
}

// IsVictory reports whether the story carries the victory marker.
func IsVictory(story string) bool {
	return strings.Contains(story, VictoryMarker)
}

// ApplyXPRules computes the committed xp from the model's proposal. The
// passivity override runs last and wins over every other rule.
func ApplyXPRules(proposedXP int, action, story string) int {
	xp := proposedXP
	switch {
	case IsGameOver(story):
		xp = 0
	case IsVictory(story):
		xp = VictoryXP
	case xp < 0:
		xp = 0
	case xp > MaxStepXP:
		xp = MaxStepXP
	}

	if IsPassive(action) {
		xp = 0
	}
	return xp
}

// EnsureEnding makes the story end in a question or in exactly one terminal
// marker. Game over wins when both markers are present.
func EnsureEnding(story string) string {
	story = strings.TrimSpace(story)

	var marker string
	switch {
	case IsGameOver(story):
		marker = GameOverMarker
	case IsVictory(story):
		marker = VictoryMarker
	}

	if marker != "" {
		body := strings.ReplaceAll(story, GameOverMarker, "")
		body = strings.ReplaceAll(body, VictoryMarker, "")
		body = strings.Join(strings.Fields(body), " ")
		if body == "" {
			return marker
		}
		return body + " " + marker
	}

	if strings.HasSuffix(story, "?") {
		return story
	}
	if story == "" {
		return FollowUpQuestion
	}
	return story + " " + FollowUpQuestion
}
