package osc

import (
	"fmt"
	"sync"

	"github.com/hypebeast/go-osc/osc"
)

type Config struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Client sends OSC messages to a VRChat instance. OSC rides on UDP, so
// "connected" here means the last send went through; a failed send flips the
// flag until Reconnect succeeds.
type Client struct {
	cfg *Config

	lock      sync.Mutex
	client    *osc.Client
	connected bool
}

func New(cfg *Config) *Client {
	host := cfg.Host
	if host == "" {
		host = "127.0.0.1"
	}

	port := cfg.Port
	if port == 0 {
		port = 9000 // VRChat OSC input port
	}

	return &Client{
		cfg: cfg,

		client:    osc.NewClient(host, port),
		connected: true,
	}
}

// Send delivers one value to an avatar parameter endpoint. Supported value
// types are int32, float32, bool and string.
func (c *Client) Send(endpoint string, value any) error {
	msg := osc.NewMessage(endpoint)

	switch v := value.(type) {
	case int32:
		msg.Append(v)
	case float32:
		msg.Append(v)
	case bool:
		msg.Append(v)
	case string:
		msg.Append(v)
	default:
		return fmt.Errorf("unsupported osc value type %T", value)
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	if err := c.client.Send(msg); err != nil {
		c.connected = false
		return fmt.Errorf("failed to send osc message to %s: %w", endpoint, err)
	}

	c.connected = true

	return nil
}

func (c *Client) IsConnected() bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.connected
}

// Reconnect recreates the underlying client. UDP has no handshake, so this
// only resets the transport and the connected flag.
func (c *Client) Reconnect() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	host := c.cfg.Host
	if host == "" {
		host = "127.0.0.1"
	}

	port := c.cfg.Port
	if port == 0 {
		port = 9000
	}

	c.client = osc.NewClient(host, port)
	c.connected = true

	return nil
}
