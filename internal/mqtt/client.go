package mqtt

import (
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/berfenger/homie2google/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	KEEP_ALIVE = 5 * time.Second
	SET_QOS    = 1
	SUB_QOS    = 1
)

func OptsFromConfig(cfg config.HomieConfig) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	scheme := "tcp"
	if cfg.UseTLS {
		scheme = "ssl"
		opts.SetTLSConfig(&tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12})
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Host, cfg.Port))
	opts.SetClientID(cfg.ClientId)
	if cfg.Username != "" && cfg.Password != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetKeepAlive(KEEP_ALIVE)
	opts.SetCleanSession(true)
	// reconnection is driven by the bridge actor
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetOrderMatters(true)

	return opts
}

func CreateMQTTClient(cfg config.HomieConfig, opts *mqtt.ClientOptions, onConnectHandler func(client mqtt.Client),
	onConnectionLostHandler func(mqtt.Client, error)) *MQTTClient {
	if onConnectHandler != nil {
		opts.OnConnect = onConnectHandler
	}
	if onConnectionLostHandler != nil {
		opts.OnConnectionLost = onConnectionLostHandler
	}
	return &MQTTClient{
		client: mqtt.NewClient(opts),
		cfg:    cfg,
		topics: NewHomieTopicParser(cfg.HomiePrefix),
	}
}

type MQTTClient struct {
	client mqtt.Client
	cfg    config.HomieConfig
	topics *HomieTopicParser
}

func (c *MQTTClient) BaseTopic() string {
	return c.cfg.HomiePrefix
}

func (c *MQTTClient) Topics() *HomieTopicParser {
	return c.topics
}

func (c *MQTTClient) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

func (c *MQTTClient) Publish(topic string, payload any, qos byte, retain bool, continuation func(error), timeout time.Duration) {
	token := c.client.Publish(topic, qos, retain, payload)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT publish timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) Subscribe(topic string, qos byte, handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	token := c.client.Subscribe(topic, qos, handler)
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT subscribe timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

// SubscribeToHomieTopic subscribes to every topic below the Homie prefix.
func (c *MQTTClient) SubscribeToHomieTopic(handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	c.Subscribe(c.topics.SubscriptionTopic(), SUB_QOS, handler, continuation, timeout)
}

func (c *MQTTClient) Connect(continuation func(error), timeout time.Duration) {
	token := c.client.Connect()
	go func() {
		didTO := token.WaitTimeout(timeout)
		if !didTO {
			continuation(errors.New("MQTT connect timed out"))
		} else {
			continuation(token.Error())
		}
	}()
}

func (c *MQTTClient) Disconnect(timeout time.Duration) {
	c.client.Disconnect(uint(timeout.Milliseconds()))
}
