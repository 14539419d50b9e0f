package hotel

import (
	"HotelClaimBot/internal/entity"
	"time"
)

type InboundEventRequest struct {
	UserID   string `json:"user_id" validate:"required,max=128"`
	Username string `json:"username" validate:"omitempty,max=128"`
	Kind     string `json:"kind" validate:"required,oneof=text button"`
	Payload  string `json:"payload" validate:"max=4096"`
}

func (r InboundEventRequest) ToEntity() entity.InboundEvent {
	return entity.InboundEvent{
		UserID:   r.UserID,
		Username: r.Username,
		Kind:     entity.EventKind(r.Kind),
		Payload:  r.Payload,
	}
}

type InboundEventResponse struct {
	Messages []entity.OutboundMessage `json:"messages"`
}

type HotelAppendedEvent struct {
	UserID    string            `json:"user_id"`
	HotelName string            `json:"hotel_name"`
	Address   string            `json:"address"`
	Fields    map[string]string `json:"fields"`
	CreatedAt time.Time         `json:"created_at"`
}
