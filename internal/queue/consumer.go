package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// ConfirmationSender delivers a confirmation to the guest.
type ConfirmationSender interface {
	SendBookingConfirmation(ctx context.Context, ev BookingConfirmedEvent) error
}

// errMalformed marks messages that can never be processed.
var errMalformed = errors.New("malformed booking event")

// Consumer drains the booking.confirmed queue and hands every event to a
// ConfirmationSender.
type Consumer struct {
	url    string
	sender ConfirmationSender
	log    logrus.FieldLogger
}

// NewConsumer returns a consumer for the broker at url.
func NewConsumer(url string, sender ConfirmationSender, log logrus.FieldLogger) *Consumer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Consumer{url: url, sender: sender, log: log.WithField("component", "booking-consumer")}
}

// Run connects to RabbitMQ, declares the durable booking.confirmed queue
// and consumes until ctx is cancelled.  Broker failures are retried with
// exponential backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.WithError(err).Warnf("dial broker failed; retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.WithError(err).Warn("consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		c.log.WithError(err).Warn("set QoS failed")
	}
	if _, err := ch.QueueDeclare(BookingConfirmedQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(BookingConfirmedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.deliver(ctx, d)
		}
	}
}

func (c *Consumer) deliver(ctx context.Context, d amqp.Delivery) {
	err := c.handleMessage(ctx, d.Body)
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, errMalformed) || d.Redelivered:
		// reject without requeue to avoid tight loops
		c.log.WithError(err).WithField("message_id", d.MessageId).Error("dropping booking event")
		_ = d.Nack(false, false)
	default:
		c.log.WithError(err).WithField("message_id", d.MessageId).Warn("booking event failed; requeueing once")
		_ = d.Nack(false, true)
	}
}

func (c *Consumer) handleMessage(ctx context.Context, body []byte) error {
	var ev BookingConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	if ev.BookingID == 0 || ev.GuestEmail == "" {
		return fmt.Errorf("%w: missing booking id or guest email", errMalformed)
	}
	return c.sender.SendBookingConfirmation(ctx, ev)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
