package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"booking-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher publishes the engine's side effects as domain events. The
// notification worker consumes them; publish failures are the caller's to
// log, never to roll back on.
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishBookingCreated publishes a BookingCreated event
func (ep *EventPublisher) PublishBookingCreated(ctx context.Context, event *models.BookingCreatedEvent) error {
	key := fmt.Sprintf("booking-%d", event.BookingID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishBookingCancelled publishes a BookingCancelled event
func (ep *EventPublisher) PublishBookingCancelled(ctx context.Context, event *models.BookingCancelledEvent) error {
	key := fmt.Sprintf("booking-%d", event.BookingID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishAccommodationReleased publishes an AccommodationReleased event
func (ep *EventPublisher) PublishAccommodationReleased(ctx context.Context, event *models.AccommodationReleasedEvent) error {
	key := fmt.Sprintf("booking-%d", event.BookingID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishPaymentCreated publishes a PaymentCreated event
func (ep *EventPublisher) PublishPaymentCreated(ctx context.Context, event *models.PaymentCreatedEvent) error {
	key := fmt.Sprintf("booking-%d", event.BookingID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishPaymentSuccess publishes a PaymentSuccess event
func (ep *EventPublisher) PublishPaymentSuccess(ctx context.Context, event *models.PaymentSuccessEvent) error {
	key := fmt.Sprintf("booking-%d", event.BookingID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishBookingSweepSummary publishes the sweep's aggregate result
func (ep *EventPublisher) PublishBookingSweepSummary(ctx context.Context, event *models.BookingSweepSummaryEvent) error {
	return ep.producer.PublishEvent(ctx, "booking-sweep", event)
}

// EventHandler routes incoming events to registered callbacks.
type EventHandler struct {
	onBookingCreated        func(context.Context, *models.BookingCreatedEvent) error
	onBookingCancelled      func(context.Context, *models.BookingCancelledEvent) error
	onAccommodationReleased func(context.Context, *models.AccommodationReleasedEvent) error
	onPaymentCreated        func(context.Context, *models.PaymentCreatedEvent) error
	onPaymentSuccess        func(context.Context, *models.PaymentSuccessEvent) error
	onBookingSweepSummary   func(context.Context, *models.BookingSweepSummaryEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnBookingCreated registers a handler for BookingCreated events
func (eh *EventHandler) OnBookingCreated(handler func(context.Context, *models.BookingCreatedEvent) error) {
	eh.onBookingCreated = handler
}

// OnBookingCancelled registers a handler for BookingCancelled events
func (eh *EventHandler) OnBookingCancelled(handler func(context.Context, *models.BookingCancelledEvent) error) {
	eh.onBookingCancelled = handler
}

// OnAccommodationReleased registers a handler for AccommodationReleased events
func (eh *EventHandler) OnAccommodationReleased(handler func(context.Context, *models.AccommodationReleasedEvent) error) {
	eh.onAccommodationReleased = handler
}

// OnPaymentCreated registers a handler for PaymentCreated events
func (eh *EventHandler) OnPaymentCreated(handler func(context.Context, *models.PaymentCreatedEvent) error) {
	eh.onPaymentCreated = handler
}

// OnPaymentSuccess registers a handler for PaymentSuccess events
func (eh *EventHandler) OnPaymentSuccess(handler func(context.Context, *models.PaymentSuccessEvent) error) {
	eh.onPaymentSuccess = handler
}

// OnBookingSweepSummary registers a handler for sweep summary events
func (eh *EventHandler) OnBookingSweepSummary(handler func(context.Context, *models.BookingSweepSummaryEvent) error) {
	eh.onBookingSweepSummary = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeBookingCreated:
		if eh.onBookingCreated != nil {
			var event models.BookingCreatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal BookingCreated event: %w", err)
			}
			return eh.onBookingCreated(ctx, &event)
		}

	case models.EventTypeBookingCancelled:
		if eh.onBookingCancelled != nil {
			var event models.BookingCancelledEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal BookingCancelled event: %w", err)
			}
			return eh.onBookingCancelled(ctx, &event)
		}

	case models.EventTypeAccommodationReleased:
		if eh.onAccommodationReleased != nil {
			var event models.AccommodationReleasedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal AccommodationReleased event: %w", err)
			}
			return eh.onAccommodationReleased(ctx, &event)
		}

	case models.EventTypePaymentCreated:
		if eh.onPaymentCreated != nil {
			var event models.PaymentCreatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal PaymentCreated event: %w", err)
			}
			return eh.onPaymentCreated(ctx, &event)
		}

	case models.EventTypePaymentSuccess:
		if eh.onPaymentSuccess != nil {
			var event models.PaymentSuccessEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal PaymentSuccess event: %w", err)
			}
			return eh.onPaymentSuccess(ctx, &event)
		}

	case models.EventTypeBookingSweepSummary:
		if eh.onBookingSweepSummary != nil {
			var event models.BookingSweepSummaryEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal BookingSweepSummary event: %w", err)
			}
			return eh.onBookingSweepSummary(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
