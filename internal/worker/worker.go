package worker

import (
	"context"
	"log"

	"booking-service/internal/broker"
	"booking-service/internal/models"
)

// Notifier is the sink the worker fans events out to.
type Notifier interface {
	SendBookingCreated(ev *models.BookingCreatedEvent)
	SendBookingCancelled(ev *models.BookingCancelledEvent)
	SendAccommodationReleased(ev *models.AccommodationReleasedEvent)
	SendPaymentCreated(ev *models.PaymentCreatedEvent)
	SendPaymentSuccess(ev *models.PaymentSuccessEvent)
	SendBookingSweepSummary(ev *models.BookingSweepSummaryEvent)
}

// NotificationWorker consumes domain events and turns them into outbound
// notifications. It runs outside every domain transaction, so slow or
// failing delivery cannot touch booking or payment state.
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

// NewNotificationWorker wires the event stream to a notifier.
func NewNotificationWorker(consumer *broker.Consumer, notifier Notifier) *NotificationWorker {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnBookingCreated(func(ctx context.Context, ev *models.BookingCreatedEvent) error {
		notifier.SendBookingCreated(ev)
		return nil
	})
	eventHandler.OnBookingCancelled(func(ctx context.Context, ev *models.BookingCancelledEvent) error {
		notifier.SendBookingCancelled(ev)
		return nil
	})
	eventHandler.OnAccommodationReleased(func(ctx context.Context, ev *models.AccommodationReleasedEvent) error {
		notifier.SendAccommodationReleased(ev)
		return nil
	})
	eventHandler.OnPaymentCreated(func(ctx context.Context, ev *models.PaymentCreatedEvent) error {
		notifier.SendPaymentCreated(ev)
		return nil
	})
	eventHandler.OnPaymentSuccess(func(ctx context.Context, ev *models.PaymentSuccessEvent) error {
		notifier.SendPaymentSuccess(ev)
		return nil
	})
	eventHandler.OnBookingSweepSummary(func(ctx context.Context, ev *models.BookingSweepSummaryEvent) error {
		notifier.SendBookingSweepSummary(ev)
		return nil
	})

	return &NotificationWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
	}
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	log.Println("Starting notification worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	log.Println("Stopping notification worker...")
	return w.consumer.Close()
}
