package service

import (
	"context"

	"slotter/pkg/kafka"
	"slotter/pkg/logger"
	"slotter/pkg/model"
)

const EventBookingReserved = "booking.reserved"

// Notifier delivers reservation events to interested consumers. Delivery
// is best effort: a reservation that committed stays committed no matter
// what the notifier returns.
type Notifier interface {
	BookingReserved(ctx context.Context, booking *model.Booking) error
}

type kafkaNotifier struct {
	producer *kafka.Producer
	log      *logger.Logger
}

func NewKafkaNotifier(producer *kafka.Producer, log *logger.Logger) Notifier {
	return &kafkaNotifier{
		producer: producer,
		log:      log,
	}
}

func (n *kafkaNotifier) BookingReserved(ctx context.Context, booking *model.Booking) error {
	msg, err := kafka.NewMessage(booking.SlotID, EventBookingReserved, booking)
	if err != nil {
		return err
	}
	return n.producer.Publish(ctx, msg)
}

type noopNotifier struct{}

// NewNoopNotifier is used when no Kafka brokers are configured.
func NewNoopNotifier() Notifier {
	return noopNotifier{}
}

func (noopNotifier) BookingReserved(context.Context, *model.Booking) error {
	return nil
}
