package hotelService

import (
	"HotelClaimBot/internal/entity"
	hotelRepository "HotelClaimBot/internal/api/hotel/repository"
	"HotelClaimBot/pkg/events"
	"HotelClaimBot/pkg/fuzzy"
	"HotelClaimBot/pkg/keylock"
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type IHotelService interface {
	HandleEvent(ctx context.Context, ev entity.InboundEvent) ([]entity.OutboundMessage, error)
}

type HotelConfig struct {
	Questions    []Question
	StoreTimeout time.Duration
}

// DefaultQuestions is the questionnaire used when none is configured.
func DefaultQuestions() []Question {
	return []Question{
		{Key: "rooms", Prompt: "How many rooms does the hotel have?"},
		{Key: "contact", Prompt: "Who is the contact person (name and phone)?"},
		{Key: "comment", Prompt: "Any comment about the visit?"},
	}
}

type hotelService struct {
	log       *logrus.Logger
	records   hotelRepository.RecordStore
	sessions  hotelRepository.SessionStore
	matcher   fuzzy.IMatcher
	publisher events.IPublisher
	machine   *Machine
	config    *HotelConfig
	now       hotelRepository.Clock

	locks    *keylock.KeyedMutex
	appendMu sync.Mutex
}

func NewHotelService(
	log *logrus.Logger,
	records hotelRepository.RecordStore,
	sessions hotelRepository.SessionStore,
	matcher fuzzy.IMatcher,
	publisher events.IPublisher,
	config *HotelConfig,
	now hotelRepository.Clock,
) IHotelService {
	if now == nil {
		now = time.Now
	}
	if config.StoreTimeout <= 0 {
		config.StoreTimeout = 10 * time.Second
	}

	return &hotelService{
		log:       log,
		records:   records,
		sessions:  sessions,
		matcher:   matcher,
		publisher: publisher,
		machine:   NewMachine(config.Questions),
		config:    config,
		now:       now,
		locks:     keylock.New(),
	}
}
