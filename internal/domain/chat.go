package domain

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is a single message returned to GraphQL callers. It is built per
// response and never stored.
type ChatMessage struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// PromptMessage is the provider-facing chat message shape sent to the
// completion endpoint.
type PromptMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
