package adventure

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrNoJSONObject = errors.New("no JSON object in model response")
	ErrEmptyStory   = errors.New("model response has an empty story")
)

// Proposal is the model's raw answer. Nothing in it is trusted until it has
// been through ApplyXPRules and EnsureEnding.
type Proposal struct {
	Story       string   `json:"story"`
	ImagePrompt string   `json:"image_prompt"`
	XP          LooseInt `json:"xp"`
}

// LooseInt accepts a JSON number, a numeric string, or null.
type LooseInt int

func (l *LooseInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*l = 0
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		*l = LooseInt(n)
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("xp is not a number: %s", string(data))
	}
	*l = LooseInt(int(f))
	return nil
}

// StripFences removes markdown code fences (```json ... ```) around a model reply.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```JSON", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

// extractObject returns the span between the first '{' and the last '}'.
func extractObject(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return "", ErrNoJSONObject
	}
	return text[start : end+1], nil
}

// ParseProposal decodes the single JSON object in a model reply.
func ParseProposal(raw string) (*Proposal, error) {
	obj, err := extractObject(StripFences(raw))
	if err != nil {
		return nil, err
	}

	var p Proposal
	if err := json.Unmarshal([]byte(obj), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal proposal: %w", err)
	}
	p.Story = strings.TrimSpace(p.Story)
	p.ImagePrompt = strings.TrimSpace(p.ImagePrompt)
	if p.Story == "" {
		return nil, ErrEmptyStory
	}
	return &p, nil
}
