package dto

type SendMessageRequest struct {
	ConversationId string `json:"conversation_id" validate:"required"`
	UserId         string `json:"user_id" validate:"required"`
	Message        string `json:"message"`
}

type SendMessageResponse struct {
	TurnId      string  `json:"turn_id"`
	Reply       string  `json:"reply"`
	Outcome     string  `json:"outcome"` // auto_reply | escalate | clarify
	Reason      string  `json:"reason,omitempty"`
	DialogState string  `json:"dialog_state"`
	Confidence  float64 `json:"confidence,omitempty"`
	Cached      bool    `json:"cached"`
}

// EmbedDocumentMessage is the in-process job payload for (re)embedding one
// knowledge-base document.
type EmbedDocumentMessage struct {
	DocumentId string `json:"document_id"`
}
