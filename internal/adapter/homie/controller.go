package homie

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/berfenger/homie2google/internal/config"
	"github.com/berfenger/homie2google/internal/core/domain"
	"github.com/berfenger/homie2google/internal/core/port"
	"github.com/berfenger/homie2google/internal/mqtt"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const (
	DISCONNECT_TIMEOUT  = 250 * time.Millisecond
	DEFAULT_SET_TIMEOUT = 5 * time.Second
)

// Controller keeps the device tree of one user's Homie prefix up to date and
// writes property values back to the bus.
type Controller struct {
	client  *mqtt.MQTTClient
	tree    *Tree
	logger  *zap.Logger
	mu      sync.RWMutex
	onEvent func(domain.HomieEvent)
	onError func(error)
}

func NewController(cfg config.HomieConfig, logger *zap.Logger) *Controller {
	c := &Controller{
		tree:   NewTree(),
		logger: logger.With(zap.String("homie", cfg.HomiePrefix), zap.String("broker", cfg.Host)),
	}
	c.client = mqtt.CreateMQTTClient(cfg, mqtt.OptsFromConfig(cfg), nil, func(_ paho.Client, err error) {
		c.emitError(&domain.ConnectionError{Err: err})
	})
	return c
}

func (c *Controller) BaseTopic() string {
	return c.client.BaseTopic()
}

func (c *Controller) Devices() domain.Devices {
	return c.tree.Devices()
}

func (c *Controller) Node(deviceId, nodeId string) (domain.Device, domain.Node, bool) {
	return c.tree.Node(deviceId, nodeId)
}

func (c *Controller) OnEvent(handler func(domain.HomieEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvent = handler
}

func (c *Controller) OnError(handler func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = handler
}

func (c *Controller) Connect(continuation func(error), timeout time.Duration) {
	c.client.Connect(func(err error) {
		if err != nil {
			continuation(&domain.ConnectionError{Err: err})
			return
		}
		continuation(nil)
	}, timeout)
}

func (c *Controller) Subscribe(continuation func(error), timeout time.Duration) {
	c.client.SubscribeToHomieTopic(c.handleMessage, func(err error) {
		if err != nil {
			continuation(&domain.ConnectionError{Err: err})
			return
		}
		continuation(nil)
	}, timeout)
}

func (c *Controller) Disconnect() {
	c.client.Disconnect(DISCONNECT_TIMEOUT)
}

// Set publishes a new value to the property's set topic and waits for the
// broker acknowledgement, bounded by ctx or DEFAULT_SET_TIMEOUT.
func (c *Controller) Set(ctx context.Context, deviceId, nodeId, propertyId, value string) error {
	_, node, ok := c.tree.Node(deviceId, nodeId)
	if !ok {
		return fmt.Errorf("%s: %w", domain.NodeAddress(deviceId, nodeId), domain.ErrDeviceNotFound)
	}
	p, ok := node.Property(propertyId)
	if !ok {
		return fmt.Errorf("%s/%s: %w", domain.NodeAddress(deviceId, nodeId), propertyId, domain.ErrDeviceNotFound)
	}
	if !p.Settable {
		return fmt.Errorf("%s/%s: %w", domain.NodeAddress(deviceId, nodeId), propertyId, domain.ErrNotSettable)
	}
	if !c.client.IsConnected() {
		return domain.ErrNotConnected
	}

	timeout := DEFAULT_SET_TIMEOUT
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	topic := c.client.Topics().PropertySetTopic(deviceId, nodeId, propertyId)
	result := make(chan error, 1)
	c.client.Publish(topic, value, mqtt.SET_QOS, false, func(err error) {
		result <- err
	}, timeout)

	select {
	case err := <-result:
		if err != nil {
			return fmt.Errorf("publishing %s: %w", topic, err)
		}
		c.logger.Debug("property set", zap.String("topic", topic), zap.String("value", value))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) handleMessage(_ paho.Client, msg paho.Message) {
	parsed := c.client.Topics().Parse(msg.Topic())
	if parsed.Kind == mqtt.TopicIgnored {
		return
	}
	events, err := c.tree.Apply(parsed, string(msg.Payload()))
	if err != nil {
		c.emitError(&domain.ProtocolError{Topic: msg.Topic(), Err: err})
		return
	}
	for _, e := range events {
		c.emitEvent(e)
	}
}

func (c *Controller) emitEvent(e domain.HomieEvent) {
	c.mu.RLock()
	handler := c.onEvent
	c.mu.RUnlock()
	if handler != nil {
		handler(e)
	}
}

func (c *Controller) emitError(err error) {
	c.mu.RLock()
	handler := c.onError
	c.mu.RUnlock()
	if handler != nil {
		handler(err)
	} else {
		c.logger.Error("homie controller error", zap.Error(err))
	}
}

// ensure interface compliance
var _ port.HomieController = (*Controller)(nil)
