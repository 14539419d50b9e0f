package hotelHandler

import (
	"HotelClaimBot/internal/api/hotel"
	contextPkg "HotelClaimBot/pkg/context"
	"HotelClaimBot/pkg/handlerUtil"
	"HotelClaimBot/pkg/log"
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

var eventTimeout = 30 * time.Second

func (h *HotelHandler) HandleEvent(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), eventTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	var req hotel.InboundEventRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"user_id":    req.UserID,
		"kind":       req.Kind,
	}).Debug("Handling inbound event")

	messages, err := h.hotelService.HandleEvent(contextPkg.WithUserID(c, req.UserID), req.ToEntity())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return errHandler.HandleRequestTimeout(ctx)
		}
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "handle_event")
	}

	// The session is already saved, so the replies go out even when the
	// deadline passed on the way back.
	return errHandler.HandleSuccess(ctx, fiber.StatusOK, hotel.InboundEventResponse{Messages: messages})
}
