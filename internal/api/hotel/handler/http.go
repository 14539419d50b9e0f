package hotelHandler

import (
	hotelService "HotelClaimBot/internal/api/hotel/service"
	"HotelClaimBot/internal/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type HotelHandler struct {
	log          *logrus.Logger
	validator    *validator.Validate
	middleware   middleware.Middleware
	hotelService hotelService.IHotelService
}

func New(
	log *logrus.Logger,
	validate *validator.Validate,
	middleware middleware.Middleware,
	hs hotelService.IHotelService,
) *HotelHandler {
	return &HotelHandler{
		log:          log,
		validator:    validate,
		middleware:   middleware,
		hotelService: hs,
	}
}

func (h *HotelHandler) Start(srv fiber.Router) {
	hotel := srv.Group("/hotel")

	// Chat platforms post every user action here
	hotel.Post("/events", h.middleware.NewRateLimiter, h.HandleEvent)
}
