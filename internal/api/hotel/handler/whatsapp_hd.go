package hotelHandler

import (
	hotelService "HotelClaimBot/internal/api/hotel/service"
	"HotelClaimBot/internal/entity"
	contextPkg "HotelClaimBot/pkg/context"
	"HotelClaimBot/pkg/log"
	"HotelClaimBot/pkg/utils"
	"HotelClaimBot/pkg/whatsapp"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

type MessageSender interface {
	SendMessage(ctx context.Context, phoneNumber, message string) error
}

// WhatsAppDispatcher adapts plain WhatsApp text to dialogue events. WhatsApp
// has no inline buttons, so offered buttons are listed as keywords and a
// reply matching one of the last offered keywords or labels becomes a button
// event. Numbered picks stay text; the dialogue accepts typed numbers.
type WhatsAppDispatcher struct {
	log          *logrus.Logger
	hotelService hotelService.IHotelService
	sender       MessageSender
	utils        utils.IUtils
	offered      *cache.Cache
}

func NewWhatsAppDispatcher(
	log *logrus.Logger,
	hs hotelService.IHotelService,
	sender MessageSender,
	offerTTL time.Duration,
) *WhatsAppDispatcher {
	return &WhatsAppDispatcher{
		log:          log,
		hotelService: hs,
		sender:       sender,
		utils:        utils.New(),
		offered:      cache.New(offerTTL, 2*offerTTL),
	}
}

func (d *WhatsAppDispatcher) HandleIncoming(ctx context.Context, msg whatsapp.IncomingMessage) {
	requestID := d.utils.NewRequestID(time.Now())
	ctx, cancel := context.WithTimeout(contextPkg.WithRequestID(ctx, requestID), eventTimeout)
	defer cancel()

	ev := d.toEvent(msg)
	messages, err := d.hotelService.HandleEvent(contextPkg.WithUserID(ctx, ev.UserID), ev)
	if err != nil {
		log.ErrorWithTraceID(d.log, log.Fields{
			"request_id": requestID,
			"user_id":    ev.UserID,
			"error":      err.Error(),
		}, "Failed to handle WhatsApp message")
		return
	}

	for _, m := range messages {
		d.remember(m)
		if err := d.sender.SendMessage(ctx, m.UserID, renderText(m)); err != nil {
			d.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"user_id":    m.UserID,
				"error":      err.Error(),
			}).Error("Failed to send WhatsApp reply")
			return
		}
	}
}

func (d *WhatsAppDispatcher) toEvent(msg whatsapp.IncomingMessage) entity.InboundEvent {
	ev := entity.InboundEvent{
		UserID:   msg.From,
		Username: msg.PushName,
		Kind:     entity.EventText,
		Payload:  strings.TrimSpace(msg.Text),
	}

	v, ok := d.offered.Get(msg.From)
	if !ok {
		return ev
	}

	for _, b := range v.([]entity.Button) {
		if strings.EqualFold(ev.Payload, b.Payload) || strings.EqualFold(ev.Payload, b.Label) {
			ev.Kind = entity.EventButton
			ev.Payload = b.Payload
			d.offered.Delete(msg.From)
			break
		}
	}
	return ev
}

func (d *WhatsAppDispatcher) remember(m entity.OutboundMessage) {
	var keywords []entity.Button
	for _, b := range m.Buttons {
		if !strings.HasPrefix(b.Payload, entity.ButtonPickPrefix) {
			keywords = append(keywords, b)
		}
	}

	if len(keywords) == 0 {
		d.offered.Delete(m.UserID)
		return
	}
	d.offered.SetDefault(m.UserID, keywords)
}

func renderText(m entity.OutboundMessage) string {
	var b strings.Builder
	b.WriteString(m.Text)

	first := true
	for _, btn := range m.Buttons {
		if strings.HasPrefix(btn.Payload, entity.ButtonPickPrefix) {
			continue
		}
		if first {
			b.WriteString("\n\nReply with:")
			first = false
		}
		fmt.Fprintf(&b, "\n• %s: %s", btn.Payload, btn.Label)
	}
	return b.String()
}
