package hotelHandler

import (
	"HotelClaimBot/internal/api/hotel"
	"HotelClaimBot/pkg/events"
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// NewAuditHandler logs every appended hotel.
func NewAuditHandler(log *logrus.Logger) events.Handler {
	return func(_ context.Context, payload []byte) error {
		var evt hotel.HotelAppendedEvent
		if err := events.Decode(payload, &evt); err != nil {
			return fmt.Errorf("failed to decode %s: %w", events.TopicHotelAppended, err)
		}

		log.WithFields(logrus.Fields{
			"user_id":  evt.UserID,
			"hotel":    evt.HotelName,
			"address":  evt.Address,
			"agent":    evt.Fields["agent"],
			"decision": evt.Fields["decision"],
		}).Info("Hotel record appended")
		return nil
	}
}

// NewNotifyHandler forwards every appended hotel to a supervisor phone.
func NewNotifyHandler(sender MessageSender, phone string) events.Handler {
	return func(ctx context.Context, payload []byte) error {
		var evt hotel.HotelAppendedEvent
		if err := events.Decode(payload, &evt); err != nil {
			return fmt.Errorf("failed to decode %s: %w", events.TopicHotelAppended, err)
		}

		text := fmt.Sprintf("New hotel: %s, %s (agent %s, %s)",
			evt.HotelName, evt.Address, evt.Fields["agent"], evt.Fields["decision"])
		return sender.SendMessage(ctx, phone, text)
	}
}
