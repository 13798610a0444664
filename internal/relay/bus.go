package relay

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Bus is a per-topic publish/subscribe channel. Delivery is best-effort:
// publishing to a topic with no subscribers drops the message.
type Bus interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(ctx context.Context, topic string) (Subscription, error)
}

// Subscription receives payloads for one topic. Messages closes when the
// subscription is closed or its context is cancelled; no messages are
// delivered after that.
type Subscription interface {
	Messages() <-chan []byte
	Close() error
}

// RedisBus implements Bus on Redis pub/sub, one channel per session topic.
type RedisBus struct {
	client *redis.Client
}

// NewRedisBus wraps a Redis client.
func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client}
}

// Publish sends the payload to the topic's channel.
func (b *RedisBus) Publish(ctx context.Context, topic string, payload []byte) error {
	return b.client.Publish(ctx, topic, payload).Err()
}

// Subscribe opens a pub/sub subscription bound to ctx.
func (b *RedisBus) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	ps := b.client.Subscribe(ctx, topic)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, err
	}

	sub := &redisSubscription{ps: ps, out: make(chan []byte, 32)}
	go sub.pump(ctx)
	return sub, nil
}

type redisSubscription struct {
	ps        *redis.PubSub
	out       chan []byte
	closeOnce sync.Once
}

func (s *redisSubscription) pump(ctx context.Context) {
	defer close(s.out)
	ch := s.ps.Channel()
	for {
		select {
		case <-ctx.Done():
			s.Close()
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			select {
			case s.out <- []byte(msg.Payload):
			case <-ctx.Done():
				s.Close()
				return
			}
		}
	}
}

func (s *redisSubscription) Messages() <-chan []byte { return s.out }

func (s *redisSubscription) Close() error {
	var err error
	s.closeOnce.Do(func() { err = s.ps.Close() })
	return err
}

// MemoryBus is an in-process Bus for tests and single-node deployments.
type MemoryBus struct {
	mu   sync.Mutex
	subs map[string][]*memorySubscription
}

// NewMemoryBus creates an empty in-process bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[string][]*memorySubscription)}
}

// Publish fans the payload out to current subscribers; slow subscribers with
// full buffers are skipped rather than blocking the turn.
func (b *MemoryBus) Publish(ctx context.Context, topic string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs[topic] {
		select {
		case sub.out <- payload:
		default:
		}
	}
	return nil
}

// Subscribe registers a subscriber for the topic.
func (b *MemoryBus) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	sub := &memorySubscription{bus: b, topic: topic, out: make(chan []byte, 32)}
	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], sub)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		sub.Close()
	}()
	return sub, nil
}

type memorySubscription struct {
	bus       *MemoryBus
	topic     string
	out       chan []byte
	closeOnce sync.Once
}

func (s *memorySubscription) Messages() <-chan []byte { return s.out }

func (s *memorySubscription) Close() error {
	s.closeOnce.Do(func() {
		s.bus.mu.Lock()
		subs := s.bus.subs[s.topic]
		for i, sub := range subs {
			if sub == s {
				s.bus.subs[s.topic] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		s.bus.mu.Unlock()
		close(s.out)
	})
	return nil
}
