// Package notifier delivers fire-and-forget operational notifications to a
// Telegram admin chat. Delivery failures are logged and swallowed; they must
// never affect the domain transaction that produced the event.
package notifier

import (
	"fmt"

	"booking-service/internal/models"
	"booking-service/internal/util"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *zap.Logger
}

// NewTelegramNotifier creates a notifier for the given bot token and admin
// chat. An empty token disables delivery without failing startup.
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	logger := util.GetLogger()

	if token == "" {
		logger.Warn("Telegram bot token is empty, notifications disabled")
		return &TelegramNotifier{bot: nil, chatID: chatID, logger: logger}, nil
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &TelegramNotifier{bot: bot, chatID: chatID, logger: logger}, nil
}

// SendBookingCreated announces a new pending booking
func (n *TelegramNotifier) SendBookingCreated(ev *models.BookingCreatedEvent) {
	n.send(fmt.Sprintf(
		"*New booking #%d*\nAccommodation: %d\nDates: %s → %s\nTotal: %d",
		ev.BookingID, ev.AccommodationID,
		ev.CheckInDate.Format("2006-01-02"), ev.CheckOutDate.Format("2006-01-02"),
		ev.TotalPrice))
}

// SendBookingCancelled announces an owner-initiated cancellation
func (n *TelegramNotifier) SendBookingCancelled(ev *models.BookingCancelledEvent) {
	n.send(fmt.Sprintf(
		"*Booking #%d cancelled*\nAccommodation %d released",
		ev.BookingID, ev.AccommodationID))
}

// SendAccommodationReleased announces a unit returned by the expiry sweep
func (n *TelegramNotifier) SendAccommodationReleased(ev *models.AccommodationReleasedEvent) {
	n.send(fmt.Sprintf(
		"*Booking #%d expired*\nAccommodation %d released",
		ev.BookingID, ev.AccommodationID))
}

// SendPaymentCreated announces a new checkout session
func (n *TelegramNotifier) SendPaymentCreated(ev *models.PaymentCreatedEvent) {
	n.send(fmt.Sprintf(
		"*Payment session opened*\nBooking #%d, amount %d\nExpires %s",
		ev.BookingID, ev.AmountToPay, ev.ExpiresAt.Format("2006-01-02 15:04")))
}

// SendPaymentSuccess announces a confirmed payment
func (n *TelegramNotifier) SendPaymentSuccess(ev *models.PaymentSuccessEvent) {
	n.send(fmt.Sprintf(
		"*Payment received*\nBooking #%d confirmed, amount %d",
		ev.BookingID, ev.Amount))
}

// SendBookingSweepSummary announces the booking expiry sweep result
func (n *TelegramNotifier) SendBookingSweepSummary(ev *models.BookingSweepSummaryEvent) {
	if ev.ExpiredCount == 0 {
		n.send("No expired bookings found today")
		return
	}
	n.send(fmt.Sprintf("Expired %d booking(s) and released their units", ev.ExpiredCount))
}

func (n *TelegramNotifier) send(text string) {
	if n.bot == nil {
		n.logger.Debug("Notification skipped (bot disabled)", zap.String("text", text))
		return
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = "Markdown"

	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Error("Failed to send telegram notification",
			zap.Int64("chat_id", n.chatID),
			zap.Error(err))
	}
}
