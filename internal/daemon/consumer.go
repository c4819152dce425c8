package daemon

import (
	"context"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/strataworks/borevault/internal/retry"
)

// disposition is the terminal fate of one consumed message.
type disposition int

const (
	dispositionAck disposition = iota
	dispositionRetry
	dispositionDrop
)

// startConsumer connects to JetStream and runs the durable upload consumer.
// The returned stop function drains the connection.
func (d *Daemon) startConsumer(ctx context.Context) (func(), error) {
	nc, err := nats.Connect(d.cfg.NATS.URL, nats.Name("borevault-daemon"))
	if err != nil {
		return nil, err
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, err
	}

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     d.cfg.NATS.Stream,
		Subjects: []string{d.cfg.NATS.Subject},
	})
	if err != nil {
		nc.Close()
		return nil, err
	}
	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       d.cfg.NATS.Consumer,
		AckPolicy:     jetstream.AckExplicitPolicy,
		FilterSubject: d.cfg.NATS.Subject,
	})
	if err != nil {
		nc.Close()
		return nil, err
	}

	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		switch d.handleUploadEvent(ctx, msg.Data()) {
		case dispositionAck:
			_ = msg.Ack()
		case dispositionRetry:
			_ = msg.Nak()
		case dispositionDrop:
			_ = msg.Term()
		}
	})
	if err != nil {
		nc.Close()
		return nil, err
	}

	slog.Info("Upload consumer running",
		"stream", d.cfg.NATS.Stream, "subject", d.cfg.NATS.Subject, "durable", d.cfg.NATS.Consumer)
	return func() {
		consumeCtx.Stop()
		_ = nc.Drain()
	}, nil
}

// handleUploadEvent runs one parse event through the worker with transient
// failures retried in-process. Anything still failing after the policy is
// exhausted goes back to the stream; permanent failures are dropped so a
// malformed message cannot wedge the consumer.
func (d *Daemon) handleUploadEvent(ctx context.Context, data []byte) disposition {
	err := d.policy.Do(ctx, func() error {
		_, err := d.worker.HandleEvent(ctx, data)
		return err
	})
	if err == nil {
		return dispositionAck
	}
	if retry.Retryable(err) {
		slog.Warn("Parse event failed after retries, requeueing", "error", err)
		return dispositionRetry
	}
	slog.Error("Parse event failed permanently, dropping", "error", err)
	return dispositionDrop
}
