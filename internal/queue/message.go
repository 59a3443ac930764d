package queue

import "encoding/json"

// MessageVersion is bumped whenever Message changes shape.
const MessageVersion = 1

// Message announces a stored document to downstream consumers.
type Message struct {
	DocumentID  string `json:"documentId"`
	Owner       string `json:"owner"`
	StoragePath string `json:"storagePath"`
	Status      string `json:"status"`
	Pages       int    `json:"pages"`
	EnqueuedAt  string `json:"enqueuedAt"`
	Version     int    `json:"version"`
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
