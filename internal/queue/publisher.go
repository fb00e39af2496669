package queue

import (
	"context"
	"encoding/json"
	"time"

	errwrap "github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/rahmatrdn/go-query-profiler/entity"
)

const publishTimeout = 5 * time.Second

// WarningPublisher fans profiler warning events out to a RabbitMQ queue for
// external consumers (alerting, dashboards). Publish failures are logged and
// dropped; the profiler never blocks a request on the broker.
type WarningPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	log     *zap.Logger
}

func NewWarningPublisher(url, queueName string, log *zap.Logger) (*WarningPublisher, error) {
	funcName := "queue.NewWarningPublisher"

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errwrap.Wrap(err, funcName)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, errwrap.Wrap(err, funcName)
	}

	if _, err := channel.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, errwrap.Wrap(err, funcName)
	}

	return &WarningPublisher{
		conn:    conn,
		channel: channel,
		queue:   queueName,
		log:     log,
	}, nil
}

// Publish implements profiler.WarningSink.
func (p *WarningPublisher) Publish(event entity.WarningEvent) {
	body, err := json.Marshal(event)
	if err != nil {
		p.log.Error("marshal warning event", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	err = p.channel.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   event.EmittedAt,
		Body:        body,
	})
	if err != nil {
		p.log.Error("publish warning event",
			zap.Error(err),
			zap.String("kind", event.Kind),
			zap.String("request_id", event.RequestID),
		)
	}
}

func (p *WarningPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		return err
	}
	return p.conn.Close()
}
