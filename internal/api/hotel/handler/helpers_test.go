package hotelHandler

import (
	"HotelClaimBot/internal/entity"
	"context"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

type fakeService struct {
	mu     sync.Mutex
	events []entity.InboundEvent
	reply  func(ev entity.InboundEvent) []entity.OutboundMessage
	err    error
	// wait runs before the reply is built.
	wait func(ctx context.Context)
}

func (f *fakeService) HandleEvent(ctx context.Context, ev entity.InboundEvent) ([]entity.OutboundMessage, error) {
	if f.wait != nil {
		f.wait(ctx)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	if f.err != nil {
		return nil, f.err
	}
	if f.reply == nil {
		return []entity.OutboundMessage{{UserID: ev.UserID, Text: "ok"}}, nil
	}
	return f.reply(ev), nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent map[string][]string
	err  error
}

func (f *fakeSender) SendMessage(_ context.Context, phone, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.sent == nil {
		f.sent = map[string][]string{}
	}
	f.sent[phone] = append(f.sent[phone], message)
	return nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
