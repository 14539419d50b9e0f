package entity

import "strings"

type EventKind string

const (
	EventText   EventKind = "text"
	EventButton EventKind = "button"
)

type InboundEvent struct {
	UserID   string    `json:"user_id"`
	Username string    `json:"username,omitempty"`
	Kind     EventKind `json:"kind"`
	Payload  string    `json:"payload"`
}

type Button struct {
	Label   string `json:"label"`
	Payload string `json:"payload"`
}

type OutboundMessage struct {
	UserID  string   `json:"user_id"`
	Text    string   `json:"text"`
	Buttons []Button `json:"buttons,omitempty"`
}

// Button payloads understood by the dialogue.
const (
	ButtonSearch   = "search"
	ButtonStart    = "start"
	ButtonCancel   = "cancel"
	ButtonMenu     = "menu"
	ButtonNone     = "none"
	ButtonReuse    = "reuse"
	ButtonContinue = "continue"

	ButtonPickPrefix = "pick:"
)

// Text commands equivalent to the menu and cancel buttons.
const (
	CommandStart  = "/start"
	CommandCancel = "/cancel"
)

func (e InboundEvent) IsCancel() bool {
	switch e.Kind {
	case EventButton:
		return e.Payload == ButtonCancel
	case EventText:
		return strings.EqualFold(strings.TrimSpace(e.Payload), CommandCancel)
	}
	return false
}

func (e InboundEvent) IsRestart() bool {
	switch e.Kind {
	case EventButton:
		return e.Payload == ButtonMenu
	case EventText:
		return strings.EqualFold(strings.TrimSpace(e.Payload), CommandStart)
	}
	return false
}
