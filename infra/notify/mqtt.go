package notify

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/serenity-care/dispatch/core/dispatch"
	"github.com/serenity-care/dispatch/infra/logger"
)

// MQTTConfig defines the connection parameters for the Paho MQTT client used
// by the push channel. Worker mobile apps subscribe to their personal topic.
type MQTTConfig struct {
	Broker      string `json:"broker"`
	ClientID    string `json:"client_id"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	UseTLS      bool   `json:"use_tls"`
	ClientCert  string `json:"client_cert"`
	ClientKey   string `json:"client_key"`
	CABundle    string `json:"ca_bundle"`
	QoS         byte   `json:"qos"`
	TopicPrefix string `json:"topic_prefix"`
	LWTTopic    string `json:"lwt_topic"`
	LWTPayload  string `json:"lwt_payload"`
	MaxRetries  int    `json:"max_retries"`
	BackoffMS   int    `json:"backoff_ms"`

	TLSConfig *tls.Config `json:"-"`
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// PushChannel delivers offers to worker mobile apps over MQTT.
type PushChannel struct {
	cli    pahoClient
	prefix string
	qos    byte

	mu         sync.Mutex
	maxRetries int
	backoff    time.Duration
	logger     logger.Logger
}

// NewPushChannel connects to the MQTT broker.
func NewPushChannel(cfg MQTTConfig) (*PushChannel, error) {
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("push_channel")
	pc := &PushChannel{
		prefix:     cfg.TopicPrefix,
		qos:        cfg.QoS,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		logger:     log,
	}
	if pc.prefix == "" {
		pc.prefix = "worker"
	}

	opts.OnConnect = func(paho.Client) {
		log.Infof("MQTT connected")
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	pc.cli = c
	return pc, nil
}

// NewClientOptions builds mqtt client options from MQTTConfig.
func NewClientOptions(cfg MQTTConfig) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.QoS, false)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c MQTTConfig) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	cfg := &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}
	return cfg, nil
}

type pushPayload struct {
	NotificationID string  `json:"notification_id"`
	GapID          string  `json:"gap_id"`
	Urgency        string  `json:"urgency"`
	ClientName     string  `json:"client_name"`
	ClientAddress  string  `json:"client_address"`
	Start          int64   `json:"start"`
	End            int64   `json:"end"`
	Miles          float64 `json:"miles"`
	TravelMinutes  int     `json:"travel_minutes"`
	Timestamp      int64   `json:"timestamp"`
}

// Send publishes the offer to the worker's personal topic. Publishes are
// retried with exponential backoff before reporting failure.
func (p *PushChannel) Send(ctx context.Context, msg dispatch.Message) error {
	payload, err := json.Marshal(pushPayload{
		NotificationID: msg.NotificationID,
		GapID:          msg.GapID,
		Urgency:        msg.Urgency,
		ClientName:     msg.ClientName,
		ClientAddress:  msg.ClientAddress,
		Start:          msg.Start.UnixMilli(),
		End:            msg.End.UnixMilli(),
		Miles:          msg.Miles,
		TravelMinutes:  msg.TravelMinutes,
		Timestamp:      time.Now().UnixMilli(),
	})
	if err != nil {
		return err
	}

	topic := fmt.Sprintf("%s/%s/offer", p.prefix, msg.WorkerID)
	p.mu.Lock()
	retries, backoff := p.maxRetries, p.backoff
	p.mu.Unlock()
	if retries <= 0 {
		retries = 3
	}
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}

	var publishErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		token := p.cli.Publish(topic, p.qos, false, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.logger.Infof("sent offer %s to %s", msg.NotificationID, topic)
			return nil
		}
		p.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		time.Sleep(backoff * time.Duration(1<<attempt))
	}
	return publishErr
}

// Disconnect gracefully closes the MQTT connection.
func (p *PushChannel) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
