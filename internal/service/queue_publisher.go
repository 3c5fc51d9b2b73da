// Package queue_publisher provides functions to publish domain events to RabbitMQ.
// Errors are logged and returned to allow callers to ignore failures without
// interrupting the main request flow.
package queue_publisher

import (
    "context"
    "encoding/json"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/conference-companion/internal/logging"
    q "github.com/iliyamo/conference-companion/internal/queue"
)

// Publisher sends events to the broker at URL.  A connection is opened per
// publish; syncs are rare enough that pooling is not worth the state.
type Publisher struct {
    URL string
}

// New returns a Publisher for url.
func New(url string) *Publisher { return &Publisher{URL: url} }

// PublishConferenceSynced publishes a ConferenceSyncedEvent to the
// "conference.synced" queue. The function attempts to be robust and
// to never panic; any error is logged and returned so the caller can
// choose to ignore it. Messages are marked as persistent.
func (p *Publisher) PublishConferenceSynced(ctx context.Context, event q.ConferenceSyncedEvent) error {
    log := logging.Ctx(ctx)
    conn, err := amqp.Dial(p.URL)
    if err != nil {
        log.Warn().Err(err).Msg("rabbitmq: dial failed")
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        log.Warn().Err(err).Msg("rabbitmq: channel open failed")
        return err
    }
    defer func() { _ = ch.Close() }()

    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(
        q.SyncedQueueName, // name
        true,              // durable
        false,             // autoDelete
        false,             // exclusive
        false,             // noWait
        nil,               // args
    ); err != nil {
        log.Warn().Err(err).Msg("rabbitmq: queue declare failed")
        return err
    }

    body, err := json.Marshal(event)
    if err != nil {
        log.Warn().Err(err).Msg("rabbitmq: marshal event failed")
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }

    if err := ch.PublishWithContext(ctx,
        "",                // default exchange
        q.SyncedQueueName, // routing key = queue name
        false,             // mandatory
        false,             // immediate
        pub,
    ); err != nil {
        log.Warn().Err(err).Msg("rabbitmq: publish failed")
        return err
    }

    log.Debug().Uint64("conference_id", event.ConferenceID).Msg("published conference.synced")
    return nil
}
