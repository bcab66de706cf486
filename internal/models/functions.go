package models

// ActionSendMessage is the only action accepted by the message processing function.
const ActionSendMessage = "send_message"

// LeadInfo is what the chat widget collects before a conversation starts.
type LeadInfo struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Phone   *string `json:"phone,omitempty"`
	Message *string `json:"message,omitempty"`
	Subject *string `json:"subject,omitempty"`
}

// IntakeRequest is the input of the chat intake function.
type IntakeRequest struct {
	LeadData LeadInfo `json:"leadData"`
	TenantID *string  `json:"tenant_id,omitempty"`
	// VisitorID, when set, makes the intake store a 24h resume entry for the widget.
	VisitorID string `json:"visitor_id,omitempty"`
}

// IntakeResponse is the output of the chat intake function.
type IntakeResponse struct {
	Session SessionWithProtocol `json:"session"`
}

// SendMessageData is the payload of a send_message action.
type SendMessageData struct {
	SessionID  string     `json:"sessionId"`
	Message    string     `json:"message"`
	SenderType SenderType `json:"senderType"`
	SenderID   *string    `json:"senderId,omitempty"`
	TenantID   *string    `json:"tenant_id,omitempty"`
}

// MessageRequest is the input of the message processing function.
type MessageRequest struct {
	Action string          `json:"action"`
	Data   SendMessageData `json:"data"`
}

// MessageResponse is the output of the message processing function. Message is the
// stored row when Success is true; Error explains a rejection.
type MessageResponse struct {
	Success bool         `json:"success"`
	Message *ChatMessage `json:"message,omitempty"`
	Error   string       `json:"error,omitempty"`
}
