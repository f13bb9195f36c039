package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	mqttConnectTimeout = 10 * time.Second
	mqttQoS            = 1
)

// MQTTChannel publishes the content as JSON to an MQTT topic. The connection
// is established lazily on first send and reused afterwards.
type MQTTChannel struct {
	name   string
	topic  string
	client mqtt.Client
}

// NewMQTTChannel creates an MQTT channel for the given broker and topic.
func NewMQTTChannel(name, broker, topic string) *MQTTChannel {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("trendalert-" + name).
		SetConnectTimeout(mqttConnectTimeout).
		SetAutoReconnect(true)
	return &MQTTChannel{
		name:   name,
		topic:  topic,
		client: mqtt.NewClient(opts),
	}
}

// Name implements Channel.
func (c *MQTTChannel) Name() string {
	return c.name
}

// Send implements Channel.
func (c *MQTTChannel) Send(ctx context.Context, content Content) error {
	if !c.client.IsConnected() {
		if err := c.waitToken(ctx, c.client.Connect()); err != nil {
			return fmt.Errorf("mqtt %q: connect failed: %w", c.name, err)
		}
	}

	payload, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("mqtt %q: failed to marshal content: %w", c.name, err)
	}

	if err := c.waitToken(ctx, c.client.Publish(c.topic, mqttQoS, false, payload)); err != nil {
		return fmt.Errorf("mqtt %q: publish to %s failed: %w", c.name, c.topic, err)
	}
	return nil
}

// waitToken waits for a paho token bounded by the context deadline.
func (c *MQTTChannel) waitToken(ctx context.Context, token mqtt.Token) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		token.Wait()
		return token.Error()
	}
	remaining := time.Until(deadline)
	if remaining <= 0 {
		return ctx.Err()
	}
	if !token.WaitTimeout(remaining) {
		return ctx.Err()
	}
	return token.Error()
}

// Close disconnects the underlying client.
func (c *MQTTChannel) Close() {
	if c.client.IsConnected() {
		c.client.Disconnect(250)
	}
}
