// Package mqttpub publishes processed tracks to an MQTT broker: the run
// summary as a retained message and every enriched fix in order.
package mqttpub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/banshee-data/track.report/internal/monitoring"
	"github.com/banshee-data/track.report/internal/track"
)

const (
	// DefaultPublishTimeout bounds the wait for a single publish acknowledgement.
	DefaultPublishTimeout = 10 * time.Second
	disconnectQuiesceMs   = 250
)

// ErrPublishTimeout is returned when the broker does not acknowledge a
// publish within the configured timeout.
var ErrPublishTimeout = errors.New("mqtt publish timed out")

// Client is the subset of mqtt.Client the publisher needs.
type Client interface {
	Connect() mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// Options configures Dial.
type Options struct {
	Broker   string // e.g. tcp://localhost:1883
	ClientID string
	Topic    string // base topic; /summary and /fixes are appended
	QoS      byte
	Timeout  time.Duration
}

// Publisher implements track.Sink on top of an MQTT client.
type Publisher struct {
	client  Client
	topic   string
	qos     byte
	timeout time.Duration
	logf    func(format string, v ...interface{})
}

// Dial connects to the broker in opts and returns a ready publisher.
func Dial(opts Options) (*Publisher, error) {
	if opts.Broker == "" || opts.Topic == "" {
		return nil, fmt.Errorf("mqtt broker and topic are required")
	}
	co := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true)
	if opts.Timeout > 0 {
		co.SetConnectTimeout(opts.Timeout)
	}
	client := mqtt.NewClient(co)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to mqtt broker %s: %w", opts.Broker, token.Error())
	}
	p := NewPublisher(client, opts.Topic, opts.QoS)
	if opts.Timeout > 0 {
		p.timeout = opts.Timeout
	}
	p.logf("connected to %s", opts.Broker)
	return p, nil
}

// NewPublisher wraps an already connected client.
func NewPublisher(client Client, topic string, qos byte) *Publisher {
	return &Publisher{
		client:  client,
		topic:   topic,
		qos:     qos,
		timeout: DefaultPublishTimeout,
		logf:    monitoring.Prefixed("[mqtt] "),
	}
}

func (p *Publisher) SummaryTopic() string { return p.topic + "/summary" }
func (p *Publisher) FixesTopic() string   { return p.topic + "/fixes" }

// WriteTrack publishes the summary, retained, followed by each fix. It stops
// at the first failed publish or when ctx is done.
func (p *Publisher) WriteTrack(ctx context.Context, t *track.Track) error {
	if err := p.publish(ctx, p.SummaryTopic(), true, t.Summary); err != nil {
		return fmt.Errorf("publish summary: %w", err)
	}
	for i, f := range t.Fixes {
		if err := p.publish(ctx, p.FixesTopic(), false, f); err != nil {
			return fmt.Errorf("publish fix %d: %w", i, err)
		}
	}
	p.logf("published summary and %d fixes to %s", len(t.Fixes), p.topic)
	return nil
}

func (p *Publisher) publish(ctx context.Context, topic string, retained bool, v interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	token := p.client.Publish(topic, p.qos, retained, payload)

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrPublishTimeout
	}
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.client.Disconnect(disconnectQuiesceMs)
}
