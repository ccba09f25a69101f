package publisher

import (
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"

	"github.com/markusressel/controlbox/internal/ui"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultPublishTimeout = 5 * time.Second
	disconnectQuiesce     = 250 // milliseconds

	statusOnline  = "online"
	statusOffline = "offline"
)

type MqttConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
}

// StatusTopic carries the retained online state of the box.
func StatusTopic(topic string) string {
	return topic + "/status"
}

// Connect connects to the broker. The broker marks the box offline when the
// connection is lost.
func Connect(cfg MqttConfig) (pahomqtt.Client, error) {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetWill(StatusTopic(cfg.Topic), statusOffline, 1, true)
	opts.SetOnConnectHandler(func(client pahomqtt.Client) {
		ui.Info("Connected to MQTT broker %s", cfg.Broker)
		client.Publish(StatusTopic(cfg.Topic), 1, true, statusOnline)
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		ui.Warning("Lost connection to MQTT broker %s: %v", cfg.Broker, err)
	})

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, errors.Errorf("timeout connecting to %s", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, errors.Wrapf(err, "cannot connect to %s", cfg.Broker)
	}
	return client, nil
}

// Disconnect marks the box offline and closes the connection.
func Disconnect(client pahomqtt.Client, topic string) {
	token := client.Publish(StatusTopic(topic), 1, true, statusOffline)
	token.WaitTimeout(defaultPublishTimeout)
	client.Disconnect(disconnectQuiesce)
}

// NewMqttSink publishes retained messages with QoS 1.
func NewMqttSink(client pahomqtt.Client) Sink {
	return func(topic string, payload []byte) error {
		token := client.Publish(topic, 1, true, payload)
		if !token.WaitTimeout(defaultPublishTimeout) {
			return errors.Errorf("timeout publishing to %s", topic)
		}
		return token.Error()
	}
}
