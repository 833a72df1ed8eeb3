package models

import "time"

// TimestampLayout is the second precision layout used by chat exports and stored rows.
const TimestampLayout = "2006-01-02 15:04:05"

// Message is a single chat utterance. A merged utterance is a new Message value.
type Message struct {
	ChatroomID int64     `json:"chatroom_id"`
	Timestamp  time.Time `json:"timestamp"`
	// Sender is empty when unknown.
	Sender  string `json:"sender,omitempty"`
	Content string `json:"content"`
}

// FormattedTimestamp returns the timestamp in TimestampLayout.
func (m Message) FormattedTimestamp() string {
	return m.Timestamp.Format(TimestampLayout)
}
