package mqttctrl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/jonboulle/clockwork"

	"kiln_controller/internal/logger"
	"kiln_controller/internal/models"
	"kiln_controller/internal/oven"
)

type Config struct {
	Enabled bool `mapstructure:"enabled"`

	BrokerURL string `mapstructure:"broker_url"`
	ClientID  string `mapstructure:"client_id"`

	// BaseTopic prefixes every topic: <base>/state, <base>/events, <base>/set/<cmd>.
	BaseTopic string `mapstructure:"base_topic"`

	QoS             byte          `mapstructure:"qos"`
	Retain          bool          `mapstructure:"retain"`
	PublishInterval time.Duration `mapstructure:"publish_interval"`

	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// Kiln is what the controller reads and commands.
type Kiln interface {
	GetState(ctx context.Context) (models.OvenState, error)
	RunProfile(ctx context.Context, name string, startAtMinutes float64) error
	Abort(ctx context.Context) error
}

type Controller struct {
	svc   Kiln
	cfg   Config
	clock clockwork.Clock
	log   *logger.Logger

	newClient func(*mqtt.ClientOptions) mqtt.Client

	mu     sync.Mutex
	client mqtt.Client
}

func New(svc Kiln, cfg Config, clock clockwork.Clock, log *logger.Logger) (*Controller, error) {
	if cfg.BrokerURL == "" {
		cfg.BrokerURL = "tcp://localhost:1883"
	}
	if cfg.BaseTopic == "" {
		cfg.BaseTopic = "kiln"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "kiln-controller"
	}
	if cfg.PublishInterval <= 0 {
		cfg.PublishInterval = time.Second
	}
	if cfg.QoS > 1 {
		return nil, errors.New("mqtt: QoS must be 0 or 1")
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Controller{
		svc:       svc,
		cfg:       cfg,
		clock:     clock,
		log:       logger.OrNop(log).Named("mqtt"),
		newClient: mqtt.NewClient,
	}, nil
}

func (c *Controller) Run(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(c.cfg.BrokerURL).
		SetClientID(c.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second)

	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username)
		opts.SetPassword(c.cfg.Password)
	}

	// Subscribe when connected/reconnected.
	opts.OnConnect = func(cl mqtt.Client) {
		token := cl.Subscribe(c.topic("set/+"), c.cfg.QoS, c.onMessage)
		token.Wait()
		if err := token.Error(); err != nil {
			c.log.Errorw("mqtt_subscribe_failed", "err", err)
		}
	}

	// With ConnectRetry the token stays pending until the broker answers.
	client := c.newClient(opts)
	tok := client.Connect()
	select {
	case <-tok.Done():
	case <-ctx.Done():
		client.Disconnect(250)
		c.log.Warnw("mqtt_connect_abandoned", "broker", c.cfg.BrokerURL)
		return ctx.Err()
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	c.setClient(client)
	c.log.Infow("mqtt_connected", "broker", c.cfg.BrokerURL, "base_topic", c.cfg.BaseTopic)

	return c.publishLoop(ctx)
}

// publishLoop publishes the state once, then on every interval where it
// changed. It disconnects when ctx is done.
func (c *Controller) publishLoop(ctx context.Context) error {
	ticker := c.clock.NewTicker(c.cfg.PublishInterval)
	defer ticker.Stop()

	last, _ := c.publishState(ctx)
	for {
		select {
		case <-ctx.Done():
			if cl := c.getClient(); cl != nil {
				cl.Disconnect(250)
			}
			return ctx.Err()

		case <-ticker.Chan():
			cur, err := c.svc.GetState(ctx)
			if err != nil {
				c.log.Warnw("mqtt_state_read_failed", "err", err)
				continue
			}
			if !sameState(cur, last) {
				last, _ = c.publishState(ctx)
			}
		}
	}
}

func (c *Controller) publishState(ctx context.Context) (models.OvenState, error) {
	s, err := c.svc.GetState(ctx)
	if err != nil {
		return s, err
	}
	b, err := json.Marshal(s)
	if err != nil {
		return s, err
	}
	c.publish(c.topic("state"), c.cfg.Retain, b)
	return s, nil
}

// OvenEvent implements oven.EventSink and forwards transitions to
// <base>/events. Events before the first connect are dropped.
func (c *Controller) OvenEvent(e oven.Event) {
	b, err := json.Marshal(eventDTO{
		Type:        string(e.Kind),
		Profile:     e.Profile,
		Temperature: e.Temperature,
		Target:      e.Target,
		Runtime:     e.Runtime,
		At:          e.At.UTC(),
	})
	if err != nil {
		return
	}
	c.publish(c.topic("events"), false, b)
}

type eventDTO struct {
	Type        string    `json:"type"`
	Profile     string    `json:"profile,omitempty"`
	Temperature float64   `json:"temperature"`
	Target      float64   `json:"target"`
	Runtime     float64   `json:"runtime"`
	At          time.Time `json:"at"`
}

func (c *Controller) publish(topic string, retain bool, payload []byte) {
	cl := c.getClient()
	if cl == nil {
		return
	}
	cl.Publish(topic, c.cfg.QoS, retain, payload)
}

// Command payload format: {"value": ...}
type valueReq[T any] struct {
	Value *T `json:"value"`
}

func (c *Controller) onMessage(_ mqtt.Client, msg mqtt.Message) {
	// topic format: <base>/set/<command>
	prefix := c.topic("set/")
	if !strings.HasPrefix(msg.Topic(), prefix) {
		return
	}
	cmd := strings.TrimPrefix(msg.Topic(), prefix)
	ctx := context.Background()

	var err error
	switch cmd {
	case "run":
		var name string
		if name, err = decodeValueStrict[string](msg.Payload()); err == nil {
			err = c.svc.RunProfile(ctx, name, 0)
		}

	case "abort":
		var v bool
		if v, err = decodeValueStrict[bool](msg.Payload()); err == nil && v {
			err = c.svc.Abort(ctx)
		}

	default:
		return
	}
	if err != nil {
		c.log.Warnw("mqtt_command_failed", "command", cmd, "err", err)
	}
}

func (c *Controller) topic(suffix string) string {
	return strings.TrimRight(c.cfg.BaseTopic, "/") + "/" + suffix
}

func (c *Controller) setClient(cl mqtt.Client) {
	c.mu.Lock()
	c.client = cl
	c.mu.Unlock()
}

func (c *Controller) getClient() mqtt.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client
}

// sameState ignores the read timestamp.
func sameState(a, b models.OvenState) bool {
	a.UpdatedAt, b.UpdatedAt = time.Time{}, time.Time{}
	return a == b
}

func decodeValueStrict[T any](b []byte) (T, error) {
	var zero T
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	var req valueReq[T]
	if err := dec.Decode(&req); err != nil {
		return zero, err
	}
	if req.Value == nil {
		return zero, errors.New("missing field 'value'")
	}
	return *req.Value, nil
}
