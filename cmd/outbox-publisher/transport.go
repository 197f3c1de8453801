package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/krishnaroyalclub/krc-backend/pkg/outbox/registry"
)

const publishTimeout = 15 * time.Second

// topicSender publishes one message and waits for the server ack.
type topicSender interface {
	Ping(ctx context.Context) error
	Send(ctx context.Context, topic string, msg *gcppubsub.Message) (string, error)
}

type publisherSource interface {
	Ping(ctx context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type pubsubSender struct {
	client publisherSource
}

func (s pubsubSender) Ping(ctx context.Context) error { return s.client.Ping(ctx) }

func (s pubsubSender) Send(ctx context.Context, topic string, msg *gcppubsub.Message) (string, error) {
	pub := s.client.Publisher(topic)
	if pub == nil {
		return "", registry.Permanent(fmt.Errorf("no publisher for topic %q", topic))
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return pub.Publish(ctx, msg).Get(ctx)
}

// pollBackoff doubles the idle wait after each failed batch, up to max.
type pollBackoff struct {
	base, max, current time.Duration
}

func newPollBackoff(base, max time.Duration) *pollBackoff {
	return &pollBackoff{base: base, max: max, current: base}
}

func (b *pollBackoff) reset() { b.current = b.base }

func (b *pollBackoff) next(failed bool) time.Duration {
	switch {
	case !failed:
		b.current = b.base
	case b.current*2 > b.max:
		b.current = b.max
	default:
		b.current *= 2
	}
	return b.current + rand.N(250*time.Millisecond)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
