package chat

const (
	ChatRoleUser   = "user"      // Player-side instructions
	ChatRoleAgent  = "assistant" // Model
	ChatRoleSystem = "system"    // Game master rules
)

// ChatMessage represents a single message sent to a text model.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// ChatResponse is the raw text a provider returned.
type ChatResponse struct {
	Message string `json:"message,omitempty"`
	Model   string `json:"model,omitempty"`
}
