// Package telegram is the chat transport: a long-polling Bot API
// client plus the bridge that feeds inbound messages to the router.
package telegram

// Update is one entry from getUpdates.
type Update struct {
	UpdateID int64            `json:"update_id"`
	Message  *IncomingMessage `json:"message"`
}

// IncomingMessage is the subset of a Telegram message the agent uses.
type IncomingMessage struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from"`
	Chat      Chat   `json:"chat"`
	Date      int64  `json:"date"`
	Text      string `json:"text"`
}

// Chat identifies the conversation a message belongs to.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// User is the message sender.
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}
