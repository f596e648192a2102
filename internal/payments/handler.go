// Package payments settles transactions from the payment gateway's result
// events.
package payments

import (
	"context"

	"classbook/internal/events"
	apperrors "classbook/pkg/errors"
	"classbook/pkg/kafka"
	"classbook/pkg/logger"
)

// Settler is the part of the booking service the worker drives.
type Settler interface {
	CompleteTransaction(ctx context.Context, transactionID string) error
	FailTransaction(ctx context.Context, transactionID string) error
}

type Handler struct {
	settler Settler
	log     *logger.Logger
}

func NewHandler(settler Settler, log *logger.Logger) *Handler {
	return &Handler{
		settler: settler,
		log:     log,
	}
}

// Handle is a kafka.MessageHandler. Messages of other event types are
// acknowledged and skipped.
func (h *Handler) Handle(ctx context.Context, msg kafka.Message) error {
	eventType := msg.GetEventType()

	var settle func(context.Context, string) error
	switch eventType {
	case events.TypePaymentCompleted:
		settle = h.settler.CompleteTransaction
	case events.TypePaymentFailed:
		settle = h.settler.FailTransaction
	default:
		h.log.Debug("Ignoring payment event", "event_type", eventType, "event_id", msg.GetEventID())
		return nil
	}

	var result events.PaymentResult
	if err := msg.DecodeValue(&result); err != nil {
		return err
	}
	if result.TransactionID == "" {
		return kafka.NewPermanentError("payment result has no transaction_id", nil)
	}

	if err := settle(ctx, result.TransactionID); err != nil {
		return classify(err)
	}

	h.log.Info("Payment result applied",
		"event_type", eventType,
		"transaction_id", result.TransactionID,
		"payment_id", result.PaymentID,
		"reason", result.Reason,
		"correlation_id", msg.GetCorrelationID(),
	)
	return nil
}

// classify retries only failures that may pass on their own.
func classify(err error) error {
	appErr := apperrors.AsAppError(err)
	switch appErr.Code {
	case apperrors.CodeInternal, apperrors.CodeTimeout, apperrors.CodeUnavailable:
		return kafka.NewTransientError(appErr.Message, err)
	default:
		return kafka.NewPermanentError(appErr.Message, err)
	}
}
