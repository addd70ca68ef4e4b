package domain

// ChatMessage is the provider-agnostic chat message shape sent to the
// summarization service.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
