package configuration

import "time"

type ConnectionsConfig struct {
	Tcp    TcpConfig    `json:"tcp"`
	Serial SerialConfig `json:"serial"`
}

type TcpConfig struct {
	Enabled bool   `json:"enabled"`
	Address string `json:"address"`
}

type SerialConfig struct {
	Enabled  bool   `json:"enabled"`
	Port     string `json:"port"`
	BaudRate int    `json:"baudRate"`
}

type MqttConfig struct {
	Enabled         bool          `json:"enabled"`
	Broker          string        `json:"broker"`
	ClientId        string        `json:"clientId"`
	Username        string        `json:"username"`
	Password        string        `json:"password"`
	Topic           string        `json:"topic"`
	PublishInterval time.Duration `json:"publishInterval"`
}
