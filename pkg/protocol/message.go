// Package protocol defines the fulfill message contract between the console
// and the vehicle bridge. Messages travel as JSON payloads over MQTT; the
// correlation token and reply-to hint travel as transport metadata, never
// inside the payload.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// IntentKind identifies the operation a fulfill request asks for.
type IntentKind string

const (
	IntentInspect   IntentKind = "inspect"
	IntentRead      IntentKind = "read"
	IntentWrite     IntentKind = "write"
	IntentInvoke    IntentKind = "invoke"
	IntentSubscribe IntentKind = "subscribe"
)

// FulfillRequest is one request addressed to a namespace on a vehicle.
type FulfillRequest struct {
	Namespace string `json:"namespace"`
	Intent    Intent `json:"intent"`
}

// Intent is the typed payload of a request. Exactly one variant is populated,
// identified by Kind.
type Intent struct {
	Kind      IntentKind       `json:"kind"`
	Inspect   *InspectIntent   `json:"inspect,omitempty"`
	Read      *ReadIntent      `json:"read,omitempty"`
	Write     *WriteIntent     `json:"write,omitempty"`
	Invoke    *InvokeIntent    `json:"invoke,omitempty"`
	Subscribe *SubscribeIntent `json:"subscribe,omitempty"`
}

type InspectIntent struct {
	Query string `json:"query"`
}

type ReadIntent struct {
	Key string `json:"key"`
}

type WriteIntent struct {
	Key   string `json:"key"`
	Value Value  `json:"value"`
}

type InvokeIntent struct {
	Command string  `json:"command"`
	Args    []Value `json:"args,omitempty"`
}

type SubscribeIntent struct {
	// ChannelID names the subscriber's event channel; events for the
	// requested sources are delivered there.
	ChannelID string   `json:"channelId"`
	Sources   []string `json:"sources"`
}

func NewInspectRequest(namespace, query string) *FulfillRequest {
	return &FulfillRequest{
		Namespace: namespace,
		Intent:    Intent{Kind: IntentInspect, Inspect: &InspectIntent{Query: query}},
	}
}

func NewReadRequest(namespace, key string) *FulfillRequest {
	return &FulfillRequest{
		Namespace: namespace,
		Intent:    Intent{Kind: IntentRead, Read: &ReadIntent{Key: key}},
	}
}

func NewWriteRequest(namespace, key string, value Value) *FulfillRequest {
	return &FulfillRequest{
		Namespace: namespace,
		Intent:    Intent{Kind: IntentWrite, Write: &WriteIntent{Key: key, Value: value}},
	}
}

func NewInvokeRequest(namespace, command string, args []Value) *FulfillRequest {
	return &FulfillRequest{
		Namespace: namespace,
		Intent:    Intent{Kind: IntentInvoke, Invoke: &InvokeIntent{Command: command, Args: args}},
	}
}

func NewSubscribeRequest(namespace, channelID string, sources []string) *FulfillRequest {
	return &FulfillRequest{
		Namespace: namespace,
		Intent:    Intent{Kind: IntentSubscribe, Subscribe: &SubscribeIntent{ChannelID: channelID, Sources: sources}},
	}
}

// Marshal serializes the request for transport.
func (r *FulfillRequest) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// FulfillResponse is the single response to one FulfillRequest.
type FulfillResponse struct {
	Fulfillment Fulfillment `json:"fulfillment"`
}

// Fulfillment mirrors the intent variants. A server-side failure is reported
// through Error with no variant populated.
type Fulfillment struct {
	Kind      IntentKind            `json:"kind"`
	Error     string                `json:"error,omitempty"`
	Inspect   *InspectFulfillment   `json:"inspect,omitempty"`
	Read      *ReadFulfillment      `json:"read,omitempty"`
	Write     *WriteFulfillment     `json:"write,omitempty"`
	Invoke    *InvokeFulfillment    `json:"invoke,omitempty"`
	Subscribe *SubscribeFulfillment `json:"subscribe,omitempty"`
}

type InspectFulfillment struct {
	Entries []InspectEntry `json:"entries"`
}

// InspectEntry describes one namespace member matched by an inspect query.
type InspectEntry struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

type ReadFulfillment struct {
	Value Value `json:"value"`
}

type WriteFulfillment struct{}

type InvokeFulfillment struct {
	Return Value `json:"return"`
}

type SubscribeFulfillment struct{}

// ParseFulfillResponse decodes a response payload received from the transport.
func ParseFulfillResponse(payload []byte) (*FulfillResponse, error) {
	var resp FulfillResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("decode fulfill response: %w", err)
	}
	return &resp, nil
}

// Event is one asynchronous notification pushed to an event channel.
type Event struct {
	Source    string    `json:"source"`
	Value     *Value    `json:"value,omitempty"`
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
}

// ParseEvent decodes an event payload received on an event channel.
func ParseEvent(payload []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &ev, nil
}
