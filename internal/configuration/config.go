package configuration

import (
	"os"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/markusressel/controlbox/internal/ui"
)

type Configuration struct {
	DbPath  string        `json:"dbPath"`
	Storage StorageConfig `json:"storage"`

	// UpdateInterval is the tick rate of the control loop.
	UpdateInterval time.Duration `json:"updateInterval"`

	StartId    int `json:"startId"`
	MaxObjects int `json:"maxObjects"`

	ActiveGroups GroupMask `json:"activeGroups"`

	// SyncDeviceTime seeds the device time from the host clock at startup.
	SyncDeviceTime DefaultTrueBool `json:"syncDeviceTime"`

	Connections ConnectionsConfig `json:"connections"`
	Api         ApiConfig         `json:"api"`
	Statistics  StatisticsConfig  `json:"statistics"`
	Mqtt        MqttConfig        `json:"mqtt"`

	Objects []ObjectConfig `json:"objects"`
}

var CurrentConfig Configuration

// InitConfig reads in config file and ENV variables if set.
func InitConfig(cfgFile string) {
	viper.SetConfigName("controlbox")

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			ui.Error("Couldn't detect home directory: %v", err)
			os.Exit(1)
		}

		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.AddConfigPath("/etc/controlbox/")
	}

	viper.SetEnvPrefix("controlbox")
	viper.AutomaticEnv() // read in environment variables that match

	setDefaultValues()
}

func setDefaultValues() {
	viper.SetDefault("dbPath", "/etc/controlbox/controlbox.db")
	viper.SetDefault("storage.type", StorageBolt)
	viper.SetDefault("storage.dir", "/etc/controlbox/objects")

	viper.SetDefault("updateInterval", 10*time.Millisecond)
	viper.SetDefault("startId", 100)
	viper.SetDefault("maxObjects", 255)
	viper.SetDefault("activeGroups", []int{0})

	viper.SetDefault("connections.tcp.enabled", true)
	viper.SetDefault("connections.tcp.address", ":8332")
	viper.SetDefault("connections.serial.enabled", false)
	viper.SetDefault("connections.serial.baudRate", 115200)

	viper.SetDefault("api.enabled", false)
	viper.SetDefault("api.host", "localhost")
	viper.SetDefault("api.port", 8080)

	viper.SetDefault("statistics.enabled", false)
	viper.SetDefault("statistics.port", 9000)

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.clientId", "controlbox")
	viper.SetDefault("mqtt.topic", "controlbox")
	viper.SetDefault("mqtt.publishInterval", 5*time.Second)

	viper.SetDefault("objects", []ObjectConfig{})
}

// ReadConfigFile reads the config file. A missing config file is not an
// error, controlbox runs with its defaults.
func ReadConfigFile() {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			ui.Fatal("Error reading config file, %s", err)
		}
		ui.Info("No configuration file found, using defaults")
	} else {
		// this is only populated _after_ ReadInConfig()
		ui.Info("Using configuration file at: %s", viper.ConfigFileUsed())
	}

	LoadConfig()
}

func LoadConfig() {
	config, err := Decode(viper.GetViper())
	if err != nil {
		ui.Fatal("unable to decode into struct, %v", err)
	}
	CurrentConfig = config
}

// Decode unmarshals the configuration held by v.
func Decode(v *viper.Viper) (Configuration, error) {
	var config Configuration
	err := v.Unmarshal(&config, viper.DecodeHook(decodeHooks()))
	return config, err
}

func decodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		GroupMaskHookFunc(),
		DefaultTrueBoolHookFunc(),
	)
}
