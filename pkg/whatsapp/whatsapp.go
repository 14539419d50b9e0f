package whatsapp

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"
)

// IncomingMessage is a plain text message from a private chat.
type IncomingMessage struct {
	From     string
	PushName string
	Text     string
}

type MessageHandler func(ctx context.Context, msg IncomingMessage)

type IWhatsappClient interface {
	SendMessage(ctx context.Context, phoneNumber, message string) error
	OnMessage(handler MessageHandler)
	Disconnect() error
	IsConnected() bool
}

type whatsappClient struct {
	client *whatsmeow.Client
	log    *logrus.Logger

	mu       sync.RWMutex
	handlers []MessageHandler
	queue    chan IncomingMessage
}

const queueSize = 256

// New connects the first device stored in the postgres database behind dsn.
// An unpaired device prints its pairing QR code to the log.
func New(ctx context.Context, dsn string, log *logrus.Logger) (IWhatsappClient, error) {
	container, err := sqlstore.New(ctx, "postgres", dsn, waLog.Stdout("Database", "INFO", true))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get device store: %w", err)
	}

	w := &whatsappClient{
		client: whatsmeow.NewClient(deviceStore, waLog.Stdout("Client", "INFO", true)),
		log:    log,
		queue:  make(chan IncomingMessage, queueSize),
	}
	go w.run()

	connected := make(chan struct{}, 1)
	w.client.AddEventHandler(func(evt interface{}) {
		switch v := evt.(type) {
		case *events.Connected:
			select {
			case connected <- struct{}{}:
			default:
			}
		case *events.Message:
			w.dispatch(v)
		}
	})

	if w.client.Store.ID == nil {
		qrChan, _ := w.client.GetQRChannel(ctx)
		if err := w.client.Connect(); err != nil {
			return nil, fmt.Errorf("failed to connect: %w", err)
		}

		go func() {
			for evt := range qrChan {
				if evt.Event == "code" {
					log.WithField("code", evt.Code).Info("Scan the WhatsApp pairing QR code")
				}
			}
		}()
	} else {
		if err := w.client.Connect(); err != nil {
			return nil, fmt.Errorf("failed to connect: %w", err)
		}
	}

	select {
	case <-connected:
		log.Info("WhatsApp connected")
	case <-time.After(60 * time.Second):
		w.client.Disconnect()
		return nil, fmt.Errorf("connection timeout")
	}

	return w, nil
}

func (w *whatsappClient) OnMessage(handler MessageHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, handler)
}

func (w *whatsappClient) dispatch(evt *events.Message) {
	if evt.Info.IsFromMe || evt.Info.IsGroup {
		return
	}

	msg, ok := toIncoming(evt.Info.Sender.User, evt.Info.PushName, evt.Message)
	if !ok {
		return
	}

	// Handlers run on a single worker so messages keep their arrival order
	// without stalling the whatsmeow event loop.
	select {
	case w.queue <- msg:
	default:
		w.log.WithField("from", msg.From).Warn("WhatsApp inbound queue full, dropping message")
	}
}

func (w *whatsappClient) run() {
	for msg := range w.queue {
		w.mu.RLock()
		handlers := append([]MessageHandler(nil), w.handlers...)
		w.mu.RUnlock()

		for _, h := range handlers {
			h(context.Background(), msg)
		}
	}
}

func toIncoming(from, pushName string, m *waE2E.Message) (IncomingMessage, bool) {
	if m == nil {
		return IncomingMessage{}, false
	}

	text := m.GetConversation()
	if text == "" {
		text = m.GetExtendedTextMessage().GetText()
	}
	if strings.TrimSpace(text) == "" {
		return IncomingMessage{}, false
	}

	return IncomingMessage{From: from, PushName: pushName, Text: text}, true
}

func (w *whatsappClient) SendMessage(ctx context.Context, phoneNumber, message string) error {
	jid := types.NewJID(strings.TrimPrefix(phoneNumber, "+"), types.DefaultUserServer)

	waMsg := &waE2E.Message{
		Conversation: proto.String(message),
	}

	if _, err := w.client.SendMessage(ctx, jid, waMsg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

func (w *whatsappClient) Disconnect() error {
	w.client.Disconnect()
	return nil
}

func (w *whatsappClient) IsConnected() bool {
	return w.client.IsConnected()
}
