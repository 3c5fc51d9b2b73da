// Package queue contains the background consumer that listens to the
// conference.synced queue, drops the cached API responses of the synced
// conference and writes a line per sync to logs/sync.log.
package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/conference-companion/internal/logging"
    "github.com/iliyamo/conference-companion/internal/metrics"
)

// CacheEvicter drops cached responses belonging to one conference.
type CacheEvicter interface {
    EvictConference(ctx context.Context, conferenceID uint64) (int, error)
}

// SyncConsumer handles conference.synced deliveries.
type SyncConsumer struct {
    URL    string       // broker URL
    Cache  CacheEvicter // may be nil when Redis is not configured
    LogDir string       // directory for sync.log, defaults to "logs"
}

// Run connects to RabbitMQ, declares the conference.synced queue (durable),
// and consumes messages until ctx is cancelled.  Lost connections are
// retried with exponential back-off so the server keeps operating while
// the broker is away.
func (c *SyncConsumer) Run(ctx context.Context) error {
    log := logging.With("sync-consumer")
    backoff := time.Second
    for {
        if ctx.Err() != nil {
            return ctx.Err()
        }
        conn, err := amqp.Dial(c.URL)
        if err != nil {
            log.Warn().Err(err).Dur("retry_in", backoff).Msg("failed to dial broker")
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.Warn().Err(err).Msg("consume loop ended, reconnecting")
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
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

func (c *SyncConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        logging.Warn().Err(err).Msg("sync-consumer: set QoS failed")
    }

    if _, err := ch.QueueDeclare(SyncedQueueName, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    msgs, err := ch.Consume(SyncedQueueName, "", false, false, false, false, nil)
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
            if err := c.HandleMessage(ctx, d.Body); err != nil {
                logging.Error().Err(err).Msg("sync-consumer: handle message failed")
                metrics.SyncMessagesConsumed.WithLabelValues("malformed").Inc()
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            metrics.SyncMessagesConsumed.WithLabelValues("ok").Inc()
            _ = d.Ack(false)
        }
    }
}

// HandleMessage processes one delivery body.  Cache eviction failures are
// logged but do not reject the message; cached entries expire on their own.
func (c *SyncConsumer) HandleMessage(ctx context.Context, body []byte) error {
    var ev ConferenceSyncedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.ConferenceID == 0 {
        return errors.New("message without conference_id")
    }

    evicted := 0
    if c.Cache != nil {
        n, err := c.Cache.EvictConference(ctx, ev.ConferenceID)
        if err != nil {
            logging.Warn().Err(err).Uint64("conference_id", ev.ConferenceID).Msg("sync-consumer: cache eviction failed")
        }
        evicted = n
    }

    dir := c.LogDir
    if dir == "" {
        dir = "logs"
    }
    if err := os.MkdirAll(dir, 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(filepath.Join(dir, "sync.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    line := fmt.Sprintf("[%s] Conference synced | conference_id=%d | guid=%s | name=%q | events=%d | speakers=%d | tracks=%d | rooms=%d | source=%s | evicted=%d\n",
        ev.SyncedAt, ev.ConferenceID, ev.ConferenceGUID, ev.Name, ev.Events, ev.Speakers, ev.Tracks, ev.Rooms, ev.Source, evicted)
    if _, err := f.WriteString(line); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}
