package model

import "strings"

// Role tags the author of a conversation message.
type Role string

// Conversation roles understood by completion services.
const (
	RoleUser      Role = "user"
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged entry of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is the ordered list of messages sent to a completion service.
type Conversation []Message

// WithReply returns a new conversation with the assistant reply appended.
// The receiver is left untouched.
func (c Conversation) WithReply(reply string) Conversation {
	out := make(Conversation, 0, len(c)+1)
	out = append(out, c...)
	return append(out, Message{Role: RoleAssistant, Content: reply})
}

// Transcript renders every message as a "## <role>" block in order.
func (c Conversation) Transcript() string {
	blocks := make([]string, 0, len(c))
	for _, m := range c {
		blocks = append(blocks, "## "+string(m.Role)+"\n\n"+m.Content)
	}
	return strings.Join(blocks, "\n\n")
}
