package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fleetlink-io/fleetlink/pkg/mqtt"
	"github.com/fleetlink-io/fleetlink/pkg/protocol"
)

// fakeTransport implements mqtt.Client in-process. Published messages are
// recorded and can be answered through the onPublish hook; Inject delivers an
// inbound message to every registered handler, mimicking the shared
// subscription dispatch.
type fakeTransport struct {
	mu        sync.Mutex
	handlers  map[string]mqtt.MessageHandler
	published []*mqtt.Message
	onPublish func(msg *mqtt.Message)
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{handlers: make(map[string]mqtt.MessageHandler)}
}

func (f *fakeTransport) Start(ctx context.Context) error           { return nil }
func (f *fakeTransport) Disconnect(ctx context.Context)            {}
func (f *fakeTransport) AwaitConnection(ctx context.Context) error { return nil }

func (f *fakeTransport) Publish(ctx context.Context, qos int, retain bool, msg *mqtt.Message) error {
	f.mu.Lock()
	f.published = append(f.published, msg)
	hook := f.onPublish
	f.mu.Unlock()
	if hook != nil {
		hook(msg)
	}
	return nil
}

func (f *fakeTransport) Subscribe(ctx context.Context, topic string, qos int, handler mqtt.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = handler
	return nil
}

func (f *fakeTransport) Unsubscribe(ctx context.Context, topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, topic)
	return nil
}

func (f *fakeTransport) Inject(msg *mqtt.Message) {
	f.mu.Lock()
	handlers := make([]mqtt.MessageHandler, 0, len(f.handlers))
	for _, h := range f.handlers {
		handlers = append(handlers, h)
	}
	f.mu.Unlock()
	for _, h := range handlers {
		h(context.Background(), msg)
	}
}

func responsePayload(t *testing.T, value protocol.Value) []byte {
	t.Helper()
	payload, err := json.Marshal(&protocol.FulfillResponse{
		Fulfillment: protocol.Fulfillment{
			Kind: protocol.IntentRead,
			Read: &protocol.ReadFulfillment{Value: value},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return payload
}

func startedClient(t *testing.T, ft *fakeTransport) *Client {
	t.Helper()
	c := NewClient(ft)
	if err := c.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	return c
}

func (c *Client) pendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func TestExecuteResolvesMatchingResponse(t *testing.T) {
	ft := newFakeTransport()
	ft.onPublish = func(msg *mqtt.Message) {
		ft.Inject(&mqtt.Message{
			Topic:           msg.ResponseTopic,
			Payload:         responsePayload(t, protocol.Int32Value(42)),
			CorrelationData: msg.CorrelationData,
		})
	}
	c := startedClient(t, ft)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	resp, err := c.Execute(ctx, "VIN1", protocol.NewReadRequest("vehicle.cabin", "temperature"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Fulfillment.Read == nil || resp.Fulfillment.Read.Value.Int32 != 42 {
		t.Errorf("unexpected fulfillment: %+v", resp.Fulfillment)
	}
	if n := c.pendingCount(); n != 0 {
		t.Errorf("pending calls after Execute = %d, want 0", n)
	}

	if len(ft.published) != 1 {
		t.Fatalf("published %d messages, want 1", len(ft.published))
	}
	pub := ft.published[0]
	if pub.Topic != "c2d/VIN1" {
		t.Errorf("request topic = %q, want %q", pub.Topic, "c2d/VIN1")
	}
	if pub.ResponseTopic != "c2d/VIN1/rsvp" {
		t.Errorf("reply-to hint = %q, want %q", pub.ResponseTopic, "c2d/VIN1/rsvp")
	}
	if len(pub.CorrelationData) != 16 {
		t.Errorf("correlation data length = %d, want 16", len(pub.CorrelationData))
	}
}

func TestExecuteIgnoresForeignCorrelationToken(t *testing.T) {
	ft := newFakeTransport()
	ft.onPublish = func(msg *mqtt.Message) {
		foreign := make([]byte, 16)
		copy(foreign, msg.CorrelationData)
		foreign[0] ^= 0xff
		ft.Inject(&mqtt.Message{
			Topic:           msg.ResponseTopic,
			Payload:         responsePayload(t, protocol.Int32Value(1)),
			CorrelationData: foreign,
		})
	}
	c := startedClient(t, ft)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Execute(ctx, "VIN1", protocol.NewReadRequest("ns", "key"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want deadline exceeded", err)
	}
	if n := c.pendingCount(); n != 0 {
		t.Errorf("pending calls after timeout = %d, want 0", n)
	}
}

func TestExecuteIgnoresWrongResponseTopic(t *testing.T) {
	ft := newFakeTransport()
	ft.onPublish = func(msg *mqtt.Message) {
		// Right token, another vehicle's response topic.
		ft.Inject(&mqtt.Message{
			Topic:           "c2d/OTHER/rsvp",
			Payload:         responsePayload(t, protocol.Int32Value(1)),
			CorrelationData: msg.CorrelationData,
		})
	}
	c := startedClient(t, ft)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.Execute(ctx, "VIN1", protocol.NewReadRequest("ns", "key")); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want deadline exceeded", err)
	}
}

func TestExecuteAfterTimeoutStillWorks(t *testing.T) {
	ft := newFakeTransport()
	c := startedClient(t, ft)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	if _, err := c.Execute(ctx, "VIN1", protocol.NewReadRequest("ns", "key")); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want deadline exceeded", err)
	}
	cancel()

	ft.mu.Lock()
	ft.onPublish = func(msg *mqtt.Message) {
		ft.Inject(&mqtt.Message{
			Topic:           msg.ResponseTopic,
			Payload:         responsePayload(t, protocol.Int32Value(7)),
			CorrelationData: msg.CorrelationData,
		})
	}
	ft.mu.Unlock()

	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	resp, err := c.Execute(ctx2, "VIN1", protocol.NewReadRequest("ns", "key"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Fulfillment.Read.Value.Int32 != 7 {
		t.Errorf("unexpected value: %+v", resp.Fulfillment.Read.Value)
	}
}

func TestConcurrentExecutesResolveIndependently(t *testing.T) {
	ft := newFakeTransport()
	ft.onPublish = func(msg *mqtt.Message) {
		value := protocol.Int32Value(1)
		if msg.Topic == "c2d/B" {
			value = protocol.Int32Value(2)
		}
		go ft.Inject(&mqtt.Message{
			Topic:           msg.ResponseTopic,
			Payload:         responsePayload(t, value),
			CorrelationData: msg.CorrelationData,
		})
	}
	c := startedClient(t, ft)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var wg sync.WaitGroup
	results := make(map[string]int32)
	var mu sync.Mutex
	for _, vin := range []string{"A", "B"} {
		wg.Add(1)
		go func(vin string) {
			defer wg.Done()
			resp, err := c.Execute(ctx, vin, protocol.NewReadRequest("ns", "key"))
			if err != nil {
				t.Errorf("Execute(%s): %v", vin, err)
				return
			}
			mu.Lock()
			results[vin] = resp.Fulfillment.Read.Value.Int32
			mu.Unlock()
		}(vin)
	}
	wg.Wait()

	if results["A"] != 1 || results["B"] != 2 {
		t.Errorf("responses routed to wrong callers: %v", results)
	}
	if n := c.pendingCount(); n != 0 {
		t.Errorf("pending calls after all Executes = %d, want 0", n)
	}
}

func TestDuplicateResponseIsDropped(t *testing.T) {
	ft := newFakeTransport()
	ft.onPublish = func(msg *mqtt.Message) {
		dup := &mqtt.Message{
			Topic:           msg.ResponseTopic,
			Payload:         responsePayload(t, protocol.Int32Value(9)),
			CorrelationData: msg.CorrelationData,
		}
		ft.Inject(dup)
		ft.Inject(dup)
	}
	c := startedClient(t, ft)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	resp, err := c.Execute(ctx, "VIN1", protocol.NewReadRequest("ns", "key"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Fulfillment.Read.Value.Int32 != 9 {
		t.Errorf("unexpected value: %+v", resp.Fulfillment.Read.Value)
	}
}

func TestStartSubscribesResponseWildcardOnce(t *testing.T) {
	ft := newFakeTransport()
	startedClient(t, ft)

	ft.mu.Lock()
	defer ft.mu.Unlock()
	if _, ok := ft.handlers["c2d/+/rsvp"]; !ok {
		t.Errorf("wildcard subscription missing, handlers: %v", len(ft.handlers))
	}
	if len(ft.handlers) != 1 {
		t.Errorf("subscriptions = %d, want 1", len(ft.handlers))
	}
}
