// Package rpc turns the one-way pub/sub transport into a synchronous,
// per-call request/response abstraction. Each call owns a fresh correlation
// token; responses for every vehicle arrive on a single wildcard subscription
// and are routed to the one caller awaiting them.
package rpc

import (
	"context"
	"fmt"
	"sync"

	"github.com/fleetlink-io/fleetlink/pkg/log"
	"github.com/fleetlink-io/fleetlink/pkg/mqtt"
	"github.com/fleetlink-io/fleetlink/pkg/mqtt/topic"
	"github.com/fleetlink-io/fleetlink/pkg/protocol"
)

// Fulfill requests are not assumed idempotent, so request/response traffic
// uses exactly-once delivery.
const qosFulfill = 2

// pendingCall is the ephemeral record for one in-flight Execute invocation.
// It exists from just before the request is published until Execute returns.
type pendingCall struct {
	responseTopic string
	result        chan *protocol.FulfillResponse
}

// Client issues correlation-matched fulfill calls over a shared MQTT
// connection. Concurrent calls are independent; each owns its own token and
// pending-call registration.
type Client struct {
	mc mqtt.Client

	mu      sync.Mutex
	pending map[string]pendingCall
}

// NewClient creates a Client on top of an already configured transport.
func NewClient(mc mqtt.Client) *Client {
	return &Client{
		mc:      mc,
		pending: make(map[string]pendingCall),
	}
}

// Start establishes the shared response wildcard subscription. It is called
// once at startup; individual calls never re-subscribe.
func (c *Client) Start(ctx context.Context) error {
	return c.mc.Subscribe(ctx, topic.ResponseWildcard(), qosFulfill, c.dispatch)
}

// Topics returns the request/response topic pair for a vehicle.
func (c *Client) Topics(vehicleID string) topic.Pair {
	return topic.PairFor(vehicleID)
}

// Execute publishes one fulfill request and awaits its single matching
// response. The deadline on ctx bounds the whole publish+await sequence. On
// every exit path the call's listener registration is removed, so no state
// leaks between calls; a response arriving after that is dropped at dispatch.
func (c *Client) Execute(ctx context.Context, vehicleID string, req *protocol.FulfillRequest) (*protocol.FulfillResponse, error) {
	topics := topic.PairFor(vehicleID)

	id, err := newCorrelationID()
	if err != nil {
		return nil, err
	}

	// Register before publishing so a fast response cannot slip past the
	// listener.
	call := pendingCall{
		responseTopic: topics.Response,
		result:        make(chan *protocol.FulfillResponse, 1),
	}
	key := string(id[:])
	c.mu.Lock()
	c.pending[key] = call
	c.mu.Unlock()
	defer c.deregister(key)

	payload, err := req.Marshal()
	if err != nil {
		return nil, fmt.Errorf("encode fulfill request: %w", err)
	}

	msg := &mqtt.Message{
		Topic:           topics.Request,
		Payload:         payload,
		CorrelationData: id[:],
		ResponseTopic:   topics.Response,
	}
	if err := c.mc.Publish(ctx, qosFulfill, false, msg); err != nil {
		return nil, fmt.Errorf("publish fulfill request: %w", err)
	}

	select {
	case resp := <-call.result:
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) deregister(key string) {
	c.mu.Lock()
	delete(c.pending, key)
	c.mu.Unlock()
}

// dispatch inspects every message arriving on the wildcard subscription and
// resolves the one pending call whose response topic and correlation token
// both match. Everything else is dropped here.
func (c *Client) dispatch(ctx context.Context, msg *mqtt.Message) {
	if len(msg.CorrelationData) == 0 {
		log.Debug("Dropping response without correlation data", "topic", msg.Topic)
		return
	}

	c.mu.Lock()
	call, ok := c.pending[string(msg.CorrelationData)]
	c.mu.Unlock()
	if !ok || call.responseTopic != msg.Topic {
		// Late, duplicate or foreign response; nobody is waiting for it.
		log.Debug("Dropping unmatched response", "topic", msg.Topic)
		return
	}

	resp, err := protocol.ParseFulfillResponse(msg.Payload)
	if err != nil {
		log.Error(err, "Discarding undecodable fulfill response", "topic", msg.Topic)
		return
	}

	select {
	case call.result <- resp:
	default:
		// The slot resolves at most once; a duplicate for the same token is
		// ignored rather than treated as a new response.
	}
}
