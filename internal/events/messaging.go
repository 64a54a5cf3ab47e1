package events

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/order"
)

const (
	EventsExchange = "ecommerce.events"

	OrderCreatedRoutingKey         = "order.created.v1"
	OrderPaidRoutingKey            = "order.paid.v1"
	OrderPaymentFailedRoutingKey   = "order.payment_failed.v1"
	OrderDeliveryChangedRoutingKey = "order.delivery_status_changed.v1"
)

var routingKeys = map[order.ChangeKind]string{
	order.ChangeCreated:         OrderCreatedRoutingKey,
	order.ChangePaid:            OrderPaidRoutingKey,
	order.ChangePaymentFailed:   OrderPaymentFailedRoutingKey,
	order.ChangeDeliveryUpdated: OrderDeliveryChangedRoutingKey,
}

var eventNames = map[order.ChangeKind]string{
	order.ChangeCreated:         "OrderCreated",
	order.ChangePaid:            "OrderPaid",
	order.ChangePaymentFailed:   "OrderPaymentFailed",
	order.ChangeDeliveryUpdated: "OrderDeliveryStatusChanged",
}

func Dial(url string) (*amqp.Connection, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Dial: amqp.DefaultDial(10 * time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

func declareEventsExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		EventsExchange,
		"topic",
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	)
}
