package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/oshokin/arming-scheduler/internal/config"
	domain "github.com/oshokin/arming-scheduler/internal/domain/arming"
	"github.com/oshokin/arming-scheduler/internal/logger"
)

// publisher is the part of mqtt.Client the dispatcher uses.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload any) mqtt.Token
}

// Event is the JSON payload published for every notification.
type Event struct {
	BuildingID int64     `json:"building_id"`
	Building   string    `json:"building"`
	PointID    int64     `json:"point_id,omitempty"`
	Kind       string    `json:"kind"`
	At         time.Time `json:"at"`
}

// MQTT publishes notifications as JSON events to <prefix>/<building_id>/<kind>.
type MQTT struct {
	client  publisher
	prefix  string
	qos     byte
	timeout time.Duration
	now     func() time.Time
}

// ConnectMQTT connects a paho client configured from cfg.
func ConnectMQTT(cfg config.MQTTConfig, timeout time.Duration) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectTimeout(timeout)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}

	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)

	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("connect to MQTT broker %s: timed out after %s", cfg.Broker, timeout)
	}

	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to MQTT broker %s: %w", cfg.Broker, err)
	}

	return client, nil
}

// NewMQTT creates a dispatcher publishing through client.
func NewMQTT(client publisher, prefix string, qos byte, timeout time.Duration) *MQTT {
	return &MQTT{
		client:  client,
		prefix:  prefix,
		qos:     qos,
		timeout: timeout,
		now:     time.Now,
	}
}

// Topic returns the topic a notification is published to.
func (m *MQTT) Topic(n domain.Notification) string {
	kind := string(n.Kind)
	if kind == "" {
		kind = "event"
	}

	return fmt.Sprintf("%s/%d/%s", m.prefix, n.BuildingID, kind)
}

// Notify implements Dispatcher.
func (m *MQTT) Notify(ctx context.Context, n domain.Notification) {
	payload, err := json.Marshal(Event{
		BuildingID: n.BuildingID,
		Building:   n.Building,
		PointID:    n.PointID,
		Kind:       string(n.Kind),
		At:         m.now().UTC(),
	})
	if err != nil {
		logger.ErrorKV(ctx, "Failed to encode MQTT event", "error", err)

		return
	}

	topic := m.Topic(n)
	token := m.client.Publish(topic, m.qos, false, payload)

	if !token.WaitTimeout(m.timeout) {
		logger.ErrorKV(ctx, "Timed out publishing MQTT event", "topic", topic, "timeout", m.timeout)

		return
	}

	if err = token.Error(); err != nil {
		logger.ErrorKV(ctx, "Failed to publish MQTT event", "topic", topic, "error", err)

		return
	}

	logger.DebugKV(ctx, "Published MQTT event", "topic", topic)
}
