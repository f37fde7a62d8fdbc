// Package ingest subscribes to a topic of raw geohash strings (e.g. from
// edge devices reporting visited cells) and feeds them into a running
// compress.Accumulator, republishing the compressed set whenever it
// changes.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/flybeeper/geocover/compress"
	"github.com/flybeeper/geocover/internal/config"
	"github.com/flybeeper/geocover/internal/metrics"
)

// Client subscribes to a geohash-stream topic and maintains a compressed
// snapshot of everything seen, republishing on a debounce interval when
// the accumulated set has grown.
type Client struct {
	client      mqtt.Client
	cfg         config.MQTTConfig
	logger      *logrus.Entry
	accumulator *compress.Accumulator

	mu        sync.Mutex
	connected bool
	lastSize  int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a Client against cfg, wired to publish compressed snapshots
// to cfg.ResultTopic. It does not connect; call Connect.
func New(cfg config.MQTTConfig, logger *logrus.Entry, accumulator *compress.Accumulator) (*Client, error) {
	if accumulator == nil {
		return nil, fmt.Errorf("ingest: accumulator is required")
	}
	ctx, cancel := context.WithCancel(context.Background())

	c := &Client{
		cfg:         cfg,
		logger:      logger.WithField("component", "ingest"),
		accumulator: accumulator,
		ctx:         ctx,
		cancel:      cancel,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.URL)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(cfg.CleanSession)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		c.mu.Lock()
		c.connected = true
		c.mu.Unlock()
		metrics.IngestConnectionStatus.Set(1)
		c.logger.WithField("topic", cfg.Topic).Info("connected to MQTT broker, subscribing")

		if token := client.Subscribe(cfg.Topic, 1, c.messageHandler()); token.Wait() && token.Error() != nil {
			c.logger.WithError(token.Error()).Error("failed to subscribe to geohash ingest topic")
		}
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
		metrics.IngestConnectionStatus.Set(0)
		c.logger.WithError(err).Warn("lost connection to MQTT broker")
	})

	c.client = mqtt.NewClient(opts)
	return c, nil
}

// Connect opens the MQTT connection and starts the periodic
// snapshot-and-republish loop.
func (c *Client) Connect() error {
	token := c.client.Connect()
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("ingest: connect to MQTT broker: %w", token.Error())
	}
	c.wg.Add(1)
	go c.publishLoop()
	return nil
}

// Disconnect stops the republish loop and closes the MQTT connection.
func (c *Client) Disconnect() {
	c.cancel()
	c.wg.Wait()
	if c.client.IsConnected() {
		c.client.Disconnect(1000)
	}
}

// IsConnected reports the current MQTT connection status.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) messageHandler() mqtt.MessageHandler {
	return func(client mqtt.Client, msg mqtt.Message) {
		metrics.IngestMessagesReceived.Inc()
		hash := string(msg.Payload())
		if !isValidGeohash(hash) {
			metrics.IngestParseErrors.Inc()
			c.logger.WithField("payload", hash).Debug("discarding malformed geohash message")
			return
		}
		c.accumulator.Add(hash)
	}
}

// publishLoop periodically snapshots the accumulator and republishes the
// compressed set if it has changed since the last publish.
func (c *Client) publishLoop() {
	defer c.wg.Done()
	interval := c.cfg.DebounceTime
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.publishSnapshot()
		}
	}
}

func (c *Client) publishSnapshot() {
	size := c.accumulator.Len()
	c.mu.Lock()
	unchanged := size == c.lastSize
	c.mu.Unlock()
	if unchanged {
		return
	}

	snapshot, err := c.accumulator.Snapshot()
	if err != nil {
		c.logger.WithError(err).Warn("failed to compute accumulator snapshot")
		return
	}

	payload, err := marshalSnapshot(snapshot)
	if err != nil {
		c.logger.WithError(err).Warn("failed to encode accumulator snapshot")
		return
	}

	if token := c.client.Publish(c.cfg.ResultTopic, 1, false, payload); token.Wait() && token.Error() != nil {
		c.logger.WithError(token.Error()).Warn("failed to publish compressed snapshot")
		return
	}

	c.mu.Lock()
	c.lastSize = size
	c.mu.Unlock()
	metrics.IngestSnapshotSize.Set(float64(len(snapshot)))
}

func marshalSnapshot(snapshot []string) ([]byte, error) {
	return json.Marshal(snapshot)
}

func isValidGeohash(s string) bool {
	if s == "" || len(s) > 12 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isBase32Char(s[i]) {
			return false
		}
	}
	return true
}

func isBase32Char(b byte) bool {
	switch {
	case b >= '0' && b <= '9':
		return true
	case b >= 'a' && b <= 'z':
		return b != 'a' && b != 'i' && b != 'l' && b != 'o'
	default:
		return false
	}
}
