// Package imports listens for property import events published by the
// listing importer and queues the new-property matching task for each.
package imports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"realty_crm_backend/platform/config"
	"realty_crm_backend/platform/logger"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// PropertyImported is the v1 payload on the property.imported routing key.
type PropertyImported struct {
	EventType  string `json:"eventType"`
	Version    string `json:"version"`
	ClientID   string `json:"clientId"`
	PropertyID string `json:"propertyId"`
	ImportedAt string `json:"importedAt"`
}

// Enqueuer queues the reverse matching for one property.
type Enqueuer interface {
	EnqueueNewProperty(ctx context.Context, clientID, propertyID string) error
}

type outcome int

const (
	ack outcome = iota
	reject
	requeue
)

type Consumer struct {
	cfg      config.AMQPConfig
	enqueuer Enqueuer
	schema   *jsonschema.Schema
	log      *logger.Logger
}

func NewConsumer(cfg config.AMQPConfig, enqueuer Enqueuer, log *logger.Logger) (*Consumer, error) {
	schemas, err := compileSchemas()
	if err != nil {
		return nil, err
	}
	return &Consumer{
		cfg:      cfg,
		enqueuer: enqueuer,
		schema:   schemas[propertyImportedSchema],
		log:      log,
	}, nil
}

// Run consumes until ctx is cancelled or the connection drops.
func (c *Consumer) Run(ctx context.Context) error {
	conn, err := amqp.Dial(c.cfg.GetAMQPURL())
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	deliveries, err := c.setup(ch)
	if err != nil {
		return err
	}
	closed := conn.NotifyClose(make(chan *amqp.Error, 1))

	c.log.Info("property import consumer started", "queue", c.cfg.GetAMQPQueue(), "routingKey", c.cfg.GetAMQPRoutingKey())
	for {
		select {
		case <-ctx.Done():
			return nil
		case amqpErr := <-closed:
			if amqpErr == nil {
				return nil
			}
			return fmt.Errorf("amqp connection closed: %w", amqpErr)
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("amqp delivery channel closed")
			}
			c.settle(d, c.handle(ctx, d.Body))
		}
	}
}

func (c *Consumer) setup(ch *amqp.Channel) (<-chan amqp.Delivery, error) {
	if prefetch := c.cfg.GetAMQPPrefetch(); prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			return nil, fmt.Errorf("set qos: %w", err)
		}
	}
	if err := ch.ExchangeDeclare(c.cfg.GetAMQPExchange(), amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", c.cfg.GetAMQPExchange(), err)
	}
	q, err := ch.QueueDeclare(c.cfg.GetAMQPQueue(), true, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("declare queue %s: %w", c.cfg.GetAMQPQueue(), err)
	}
	if err := ch.QueueBind(q.Name, c.cfg.GetAMQPRoutingKey(), c.cfg.GetAMQPExchange(), false, nil); err != nil {
		return nil, fmt.Errorf("bind queue %s: %w", q.Name, err)
	}
	deliveries, err := ch.Consume(q.Name, "matching-property-imported", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", q.Name, err)
	}
	return deliveries, nil
}

func (c *Consumer) settle(d amqp.Delivery, o outcome) {
	var err error
	switch o {
	case ack:
		err = d.Ack(false)
	case reject:
		err = d.Reject(false)
	case requeue:
		err = d.Nack(false, true)
	}
	if err != nil {
		c.log.Warn("failed to settle delivery", "deliveryTag", d.DeliveryTag, "error", err)
	}
}

// handle validates one message and queues the matching task. Malformed
// messages are rejected for good; enqueue failures are retried.
func (c *Consumer) handle(ctx context.Context, body []byte) outcome {
	if err := validate(c.schema, body); err != nil {
		c.log.Warn("rejecting property import event", "error", err)
		return reject
	}

	var evt PropertyImported
	if err := json.Unmarshal(body, &evt); err != nil {
		c.log.Warn("rejecting property import event", "error", err)
		return reject
	}
	if _, err := uuid.Parse(evt.PropertyID); err != nil {
		c.log.Warn("rejecting property import event", "propertyId", evt.PropertyID, "error", err)
		return reject
	}

	if err := c.enqueuer.EnqueueNewProperty(ctx, evt.ClientID, evt.PropertyID); err != nil {
		c.log.Error("failed to enqueue new property matching", "clientId", evt.ClientID, "propertyId", evt.PropertyID, "error", err)
		return requeue
	}
	c.log.Info("new property matching queued", "clientId", evt.ClientID, "propertyId", evt.PropertyID)
	return ack
}
