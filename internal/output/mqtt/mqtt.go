// Package mqtt publishes events to an MQTT broker, one topic per event type.
package mqtt

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/FC2Observ/observ/internal/queue"
	"github.com/FC2Observ/observ/pkg/streaming"
)

// QoS is at least once for every message.
const QoS = 1

const (
	pendingSize    = 256
	connectWait    = 2 * time.Second
	disconnectWait = 250 // milliseconds
)

// retained event types stay on the broker so late subscribers get the current state.
var retained = map[string]bool{
	streaming.TypeMap:        true,
	streaming.TypeConnection: true,
}

// Config holds MQTT sink configuration.
type Config struct {
	Broker      string
	ClientID    string
	TopicPrefix string
}

type message struct {
	topic    string
	payload  []byte
	retained bool
}

// publisher is the part of paho.Client the sink publishes through.
type publisher interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// Sink publishes each event to <prefix>/<type>. Messages produced while the
// broker is unreachable are held in a bounded queue and flushed on connect.
type Sink struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	client  paho.Client
	pub     publisher
	pending *queue.Queue[message]
}

// New creates a new MQTT sink. Init connects it.
func New(cfg Config, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{
		cfg:     cfg,
		logger:  logger.With("sink", "mqtt"),
		pending: queue.NewBounded[message](pendingSize),
	}
}

func (s *Sink) Name() string { return "mqtt" }

// Topic returns the topic an event type is published to.
func (s *Sink) Topic(eventType string) string {
	prefix := strings.TrimSuffix(s.cfg.TopicPrefix, "/")
	if prefix == "" {
		return eventType
	}
	return prefix + "/" + eventType
}

// Init starts connecting to the broker. The client keeps retrying in the
// background, so an unreachable broker is not an error.
func (s *Sink) Init() error {
	opts := paho.NewClientOptions()
	opts.AddBroker(s.cfg.Broker)
	opts.SetClientID(s.cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetConnectionLostHandler(s.connectionLostHandler)
	opts.SetOnConnectHandler(s.onConnectHandler)

	client := paho.NewClient(opts)
	s.mu.Lock()
	s.client = client
	s.pub = client
	s.mu.Unlock()

	s.logger.Info("Connecting to MQTT broker", "broker", s.cfg.Broker, "clientId", s.cfg.ClientID)
	token := client.Connect()
	if token.WaitTimeout(connectWait) {
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqtt connect: %w", err)
		}
		return nil
	}
	s.logger.Warn("MQTT broker not reachable yet, retrying in background", "broker", s.cfg.Broker)
	return nil
}

func (s *Sink) Close() error {
	s.mu.Lock()
	client := s.client
	s.client = nil
	s.pub = nil
	s.mu.Unlock()

	if client != nil {
		client.Disconnect(disconnectWait)
	}
	return nil
}

// Send publishes e, or queues it while disconnected.
func (s *Sink) Send(e streaming.Event) error {
	data, err := e.Marshal()
	if err != nil {
		return err
	}
	s.publish(message{topic: s.Topic(e.Type), payload: data, retained: retained[e.Type]})
	return nil
}

// Pending returns the number of messages waiting for a connection.
func (s *Sink) Pending() int {
	return s.pending.Len()
}

func (s *Sink) publish(m message) {
	s.mu.Lock()
	pub := s.pub
	s.mu.Unlock()

	if pub == nil || !pub.IsConnected() {
		s.pending.Push(m)
		return
	}

	token := pub.Publish(m.topic, QoS, m.retained, m.payload)
	go func() {
		if token.Wait() && token.Error() != nil {
			s.logger.Warn("Failed to publish message", "topic", m.topic, "error", token.Error())
		}
	}()
}

func (s *Sink) connectionLostHandler(_ paho.Client, err error) {
	s.logger.Warn("Connection to MQTT broker lost, reconnecting", "error", err)
}

// onConnectHandler flushes messages queued while disconnected.
func (s *Sink) onConnectHandler(_ paho.Client) {
	queued := s.pending.GetAndEmpty()
	s.logger.Info("Connected to MQTT broker", "queued", len(queued))
	for _, m := range queued {
		s.publish(m)
	}
}
