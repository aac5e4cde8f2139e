package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/norrhem/stagecraft/internal/infrastructure/resilience"
)

// Queue dispatches profile recomputation jobs over a JetStream work queue.
// Delivery is at-least-once: unacked or nacked jobs are redelivered, which
// is safe because the recompute handler is idempotent (it always reads the
// full current window).
type Queue struct {
	conn     *nats.Conn
	js       nats.JetStreamContext
	stream   string
	subject  string
	group    string
	executor *resilience.Executor

	ackWait     time.Duration
	maxDeliver  int
	lagObserver func(time.Duration)
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	AckWait              time.Duration
	MaxDeliver           int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	// LagObserver, when set, receives the publish-to-delivery latency of
	// every consumed job.
	LagObserver func(time.Duration)
}

func New(url, stream, subject string) (*Queue, error) {
	return NewWithOptions(url, stream, subject, Options{})
}

func NewWithOptions(url, stream, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("stagecraft"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	q := &Queue{
		conn:     conn,
		js:       js,
		stream:   stream,
		subject:  subject,
		group:    "profile-workers",
		executor: options.ResilienceExecutor,
	}
	q.lagObserver = options.LagObserver
	q.ackWait = options.AckWait
	if q.ackWait <= 0 {
		q.ackWait = 2 * time.Minute
	}
	q.maxDeliver = options.MaxDeliver
	if q.maxDeliver <= 0 {
		q.maxDeliver = 5
	}

	if err := q.ensureStream(); err != nil {
		conn.Close()
		return nil, err
	}
	return q, nil
}

func (q *Queue) ensureStream() error {
	_, err := q.js.StreamInfo(q.stream)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("stream info: %w", err)
	}
	_, err = q.js.AddStream(&nats.StreamConfig{
		Name:      q.stream,
		Subjects:  []string{q.subject},
		Retention: nats.WorkQueuePolicy,
		Storage:   nats.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("add stream: %w", err)
	}
	return nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishRecompute(ctx context.Context, subjectID string) error {
	call := func(_ context.Context) error {
		if _, err := q.js.Publish(q.subject, []byte(subjectID)); err != nil {
			return fmt.Errorf("jetstream publish: %w", err)
		}
		return nil
	}

	var err error
	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// SubscribeRecompute consumes recompute jobs until ctx is done. Handler
// success acks the job; failure nacks it for redelivery, up to the
// consumer's delivery cap.
func (q *Queue) SubscribeRecompute(ctx context.Context, handler func(context.Context, string) error) error {
	sub, err := q.js.QueueSubscribe(q.subject, q.group, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		subjectID := string(msg.Data)

		if q.lagObserver != nil {
			if meta, metaErr := msg.Metadata(); metaErr == nil {
				q.lagObserver(time.Since(meta.Timestamp))
			}
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, subjectID); err != nil {
			slog.Warn("recompute_handler_failed", "subject_id", subjectID, "error", err)
			if nakErr := msg.Nak(); nakErr != nil {
				slog.Warn("recompute_nak_failed", "subject_id", subjectID, "error", nakErr)
			}
			return
		}
		if ackErr := msg.Ack(); ackErr != nil {
			slog.Warn("recompute_ack_failed", "subject_id", subjectID, "error", ackErr)
		}
	},
		nats.Durable(q.group),
		nats.ManualAck(),
		nats.AckWait(q.ackWait),
		nats.MaxDeliver(q.maxDeliver),
	)
	if err != nil {
		return fmt.Errorf("jetstream subscribe: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("flush after drain: %w", err)
	}
	return nil
}
