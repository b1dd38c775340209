package provider

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a chat message. Timestamp is accepted from clients and
// dropped before the message goes upstream.
type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Info is the display descriptor of a provider handle.
type Info struct {
	Name           string `json:"name"`
	Provider       string `json:"provider"`
	Type           string `json:"type"`
	Available      bool   `json:"available"`
	Description    string `json:"description"`
	RequiresAPIKey bool   `json:"requires_api_key"`
	APIKeySet      bool   `json:"api_key_set"`
}
