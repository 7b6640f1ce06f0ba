package mqtt

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/fleetlink-io/fleetlink/pkg/log"
)

type pahoClient struct {
	cfg *ClientConfig
	cm  *autopaho.ConnectionManager

	// subscriptions holds the registered handlers.
	// Key: topic filter (string), Value: subscriptionEntry
	subscriptions sync.Map
}

type subscriptionEntry struct {
	topic   string
	qos     int
	handler MessageHandler
}

// NewClient creates a new MQTT client implementing the Client interface.
func NewClient(cfg *ClientConfig) (Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mqtt config is required")
	}

	setDefaultConfig(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mqtt config: %w", err)
	}

	return &pahoClient{
		cfg: cfg,
	}, nil
}

func (c *pahoClient) Start(ctx context.Context) error {
	brokerURL, _ := url.Parse(c.cfg.BrokerURL) // Already validated

	pahoCfg := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{brokerURL},
		KeepAlive:                     c.cfg.KeepAlive,
		CleanStartOnInitialConnection: c.cfg.CleanStart,
		SessionExpiryInterval:         c.cfg.SessionExpiry,
		ReconnectBackoff:              autopaho.NewConstantBackoff(3 * time.Second),
		ConnectTimeout:                c.cfg.ConnectTimeout,
		ConnectUsername:               c.cfg.Username,
		ConnectPassword:               []byte(c.cfg.Password),
		TlsCfg: &tls.Config{
			InsecureSkipVerify: c.cfg.InsecureSkipVerify,
		},
		ClientConfig: paho.ClientConfig{
			ClientID:           c.cfg.ClientID,
			OnClientError:      c.onClientError,
			OnServerDisconnect: c.onServerDisconnect,
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){
				c.router,
			},
		},
		OnConnectionUp: c.onConnectionUp,
		OnConnectError: c.onConnectError,
	}

	log.Info("Starting MQTT client", "broker", c.cfg.BrokerURL, "clientID", c.cfg.ClientID)

	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		return err
	}
	c.cm = cm
	return nil
}

func (c *pahoClient) Disconnect(ctx context.Context) {
	if c.cm != nil {
		_ = c.cm.Disconnect(ctx)
		log.Info("MQTT client disconnected")
	}
}

func (c *pahoClient) Publish(ctx context.Context, qos int, retain bool, msg *Message) error {
	if c.cm == nil {
		return fmt.Errorf("client not started")
	}

	pub := &paho.Publish{
		Topic:   msg.Topic,
		QoS:     byte(qos),
		Retain:  retain,
		Payload: msg.Payload,
	}

	// Correlation metadata travels as MQTT v5 publish properties, never
	// inside the payload.
	if len(msg.CorrelationData) > 0 || msg.ResponseTopic != "" {
		pub.Properties = &paho.PublishProperties{
			CorrelationData: msg.CorrelationData,
			ResponseTopic:   msg.ResponseTopic,
		}
	}

	_, err := c.cm.Publish(ctx, pub)

	return err
}

func (c *pahoClient) Subscribe(ctx context.Context, topic string, qos int, handler MessageHandler) error {
	if c.cm == nil {
		return fmt.Errorf("client not started")
	}

	// Store the handler first so OnConnectionUp re-subscribes it after a
	// connection loss.
	entry := subscriptionEntry{
		topic:   topic,
		qos:     qos,
		handler: handler,
	}
	c.subscriptions.Store(topic, entry)

	_, err := c.cm.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{
			{Topic: topic, QoS: byte(qos)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send subscription packet: %w", err)
	}

	log.Info("Subscribed to topic", "topic", topic)
	return nil
}

func (c *pahoClient) Unsubscribe(ctx context.Context, topic string) error {
	if c.cm == nil {
		return fmt.Errorf("client not started")
	}

	c.subscriptions.Delete(topic)

	_, err := c.cm.Unsubscribe(ctx, &paho.Unsubscribe{
		Topics: []string{topic},
	})
	return err
}

func (c *pahoClient) AwaitConnection(ctx context.Context) error {
	if c.cm == nil {
		return fmt.Errorf("client not started")
	}
	return c.cm.AwaitConnection(ctx)
}

// --- Internal Callbacks ---

// subscriber is the slice of the connection manager the re-subscribe replay
// needs.
type subscriber interface {
	Subscribe(ctx context.Context, s *paho.Subscribe) (*paho.Suback, error)
}

// onConnectionUp is called when the connection is established or re-established.
func (c *pahoClient) onConnectionUp(cm *autopaho.ConnectionManager, ack *paho.Connack) {
	log.Info("MQTT connection established")
	c.resubscribeAll(cm)
}

// resubscribeAll replays the registered subscriptions after a (re)connect. A
// failed topic is reported and skipped; the rest of the set is still replayed.
func (c *pahoClient) resubscribeAll(sub subscriber) {
	c.subscriptions.Range(func(key, value any) bool {
		entry := value.(subscriptionEntry)
		log.Info("Re-subscribing", "topic", entry.topic)
		if _, err := sub.Subscribe(context.Background(), &paho.Subscribe{
			Subscriptions: []paho.SubscribeOptions{
				{Topic: entry.topic, QoS: byte(entry.qos)},
			},
		}); err != nil {
			log.Error(err, "Failed to re-subscribe", "topic", entry.topic)
		}
		return true
	})
}

func (c *pahoClient) onConnectError(err error) {
	log.Error(err, "MQTT connection failed, retrying...")
}

func (c *pahoClient) onClientError(err error) {
	log.Error(err, "MQTT client internal error")
}

func (c *pahoClient) onServerDisconnect(d *paho.Disconnect) {
	log.Warn("MQTT server requested disconnect", "reason", d.Properties.ReasonString)
}

// router handles incoming messages and dispatches them to the registered handlers.
func (c *pahoClient) router(p paho.PublishReceived) (bool, error) {
	msg := &Message{
		Topic:   p.Packet.Topic,
		Payload: p.Packet.Payload,
	}
	if props := p.Packet.Properties; props != nil {
		msg.CorrelationData = props.CorrelationData
		msg.ResponseTopic = props.ResponseTopic
	}

	// Iterate over subscriptions to find a match. Filters may contain
	// wildcards, so a plain map lookup is not enough; O(N) is fine for the
	// handful of subscriptions a console holds.
	matched := false
	c.subscriptions.Range(func(key, value any) bool {
		entry := value.(subscriptionEntry)
		if topicsMatch(entry.topic, msg.Topic) {
			// Execute the handler in its own goroutine so a suspended call
			// never blocks the reader loop.
			go func(h MessageHandler) {
				h(context.Background(), msg)
			}(entry.handler)
			matched = true
		}
		return true
	})

	if !matched {
		log.Debug("Received message on unhandled topic", "topic", msg.Topic)
	}

	return true, nil // Always acknowledge reception
}

// topicsMatch checks if a topic matches a filter (supports wildcards + and #).
func topicsMatch(filter, topic string) bool {
	if filter == topic {
		return true
	}

	if !strings.Contains(filter, "+") && !strings.Contains(filter, "#") {
		return false
	}

	filterParts := strings.Split(filter, "/")
	topicParts := strings.Split(topic, "/")

	for i, part := range filterParts {
		if part == "#" {
			return true
		}
		if i >= len(topicParts) {
			return false
		}
		if part != "+" && part != topicParts[i] {
			return false
		}
	}

	return len(filterParts) == len(topicParts)
}
