package amqp

import (
	"encoding/json"
	"time"
)

// NotificationMessage is a dashboard notification as published on the
// exchange. Consumers only log or forward it.
type NotificationMessage struct {
	ID        string    `json:"id"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewNotificationMessage creates a message stamped with the current time.
func NewNotificationMessage(id, level, message string) *NotificationMessage {
	return &NotificationMessage{
		ID:        id,
		Level:     level,
		Message:   message,
		CreatedAt: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *NotificationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// NotificationMessageFromJSON decodes a message body.
func NotificationMessageFromJSON(data []byte) (*NotificationMessage, error) {
	var msg NotificationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
