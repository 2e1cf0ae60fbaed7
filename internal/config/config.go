// Package config loads the process configuration once at startup. Values come
// from configs/config.yml and may be overridden by KILN_* environment
// variables (KILN_OVEN_TIME_STEP overrides oven.time_step).
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	modbusctrl "kiln_controller/internal/controllers/modbus"
	mqttctrl "kiln_controller/internal/controllers/mqtt"
	"kiln_controller/internal/oven"
	"kiln_controller/internal/pid"
	"kiln_controller/internal/sensor"
)

var (
	ErrInvalidConfig = errors.New("config: invalid configuration")
	ErrPinCollision  = errors.New("config: heater pin collides with the thermocouple bus")
	ErrUnknownDriver = errors.New("config: unknown sensor driver")
)

const (
	DriverIIO = "iio"

	envPrefix = "KILN"
)

// spiPins are the BCM pins used by SPI0 (CE1, CE0, MISO, MOSI, SCLK).
var spiPins = []int{7, 8, 9, 10, 11}

type Config struct {
	Port     string         `mapstructure:"port"`
	LogLevel string         `mapstructure:"log_level"`
	DB       DBConfig       `mapstructure:"db"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Profiles ProfilesConfig `mapstructure:"profiles"`

	Oven   OvenConfig       `mapstructure:"oven"`
	PID    pid.Gains        `mapstructure:"pid"`
	Sensor SensorConfig     `mapstructure:"sensor"`
	Heater HeaterConfig     `mapstructure:"heater"`
	Sim    sensor.SimConfig `mapstructure:"sim"`

	MQTT   mqttctrl.Config   `mapstructure:"mqtt"`
	Modbus modbusctrl.Config `mapstructure:"modbus"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

type ProfilesConfig struct {
	Dir string `mapstructure:"dir"`
}

type OvenConfig struct {
	oven.Config `mapstructure:",squash"`

	// RecordInterval is how often the oven state is persisted.
	RecordInterval time.Duration `mapstructure:"record_interval"`
}

type SensorConfig struct {
	Driver     string `mapstructure:"driver"`
	IIODevice  string `mapstructure:"iio_device"`
	Fahrenheit bool   `mapstructure:"fahrenheit"`
	Attempts   int    `mapstructure:"attempts"`
	// SPI is set when the thermocouple converter sits on the SPI bus.
	SPI bool `mapstructure:"spi"`
}

type HeaterConfig struct {
	GPIOChip string `mapstructure:"gpio_chip"`
	GPIOPin  int    `mapstructure:"gpio_pin"`
	Invert   bool   `mapstructure:"invert"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("db.path", "kiln.db")
	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", 12*time.Hour)
	v.SetDefault("profiles.dir", "profiles")

	v.SetDefault("oven.time_step", 2*time.Second)
	v.SetDefault("oven.idle_poll", time.Second)
	v.SetDefault("oven.emergency_shutoff_temp", 1300.0)
	v.SetDefault("oven.thermocouple_offset", 0.0)
	v.SetDefault("oven.simulate", true)
	v.SetDefault("oven.record_interval", 10*time.Second)

	v.SetDefault("pid.kp", 0.2)
	v.SetDefault("pid.ki", 0.001)
	v.SetDefault("pid.kd", 0.0)

	v.SetDefault("sensor.driver", DriverIIO)
	v.SetDefault("sensor.iio_device", "/sys/bus/iio/devices/iio:device0")
	v.SetDefault("sensor.fahrenheit", false)
	v.SetDefault("sensor.attempts", sensor.DefaultAttempts)
	v.SetDefault("sensor.spi", true)

	v.SetDefault("heater.gpio_chip", "gpiochip0")
	v.SetDefault("heater.gpio_pin", 23)
	v.SetDefault("heater.invert", false)

	v.SetDefault("sim.t_env", 25.0)
	v.SetDefault("sim.c_heat", 100.0)
	v.SetDefault("sim.c_oven", 2000.0)
	v.SetDefault("sim.p_heat", 3500.0)
	v.SetDefault("sim.r_o_nocool", 1.0)
	v.SetDefault("sim.r_ho_noair", 0.1)

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker_url", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "kiln-controller")
	v.SetDefault("mqtt.base_topic", "kiln")
	v.SetDefault("mqtt.qos", 0)
	v.SetDefault("mqtt.retain", true)
	v.SetDefault("mqtt.publish_interval", time.Second)
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")

	v.SetDefault("modbus.enabled", false)
	v.SetDefault("modbus.addr", "127.0.0.1:1502")
	v.SetDefault("modbus.unit_id", 1)
}

// Load reads config.yml from dir. A missing file is not an error: defaults
// and environment overrides still apply. The result is validated.
func Load(dir string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if dir != "" {
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports configuration conflicts that must stop the process before
// any loop starts.
func (c Config) Validate() error {
	if err := c.OvenConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Oven.RecordInterval <= 0 {
		return fmt.Errorf("%w: oven.record_interval must be positive", ErrInvalidConfig)
	}
	if c.Sensor.Attempts < 1 {
		return fmt.Errorf("%w: sensor.attempts must be at least 1", ErrInvalidConfig)
	}

	if c.Oven.Simulate {
		sim := c.SensorConfig().Sim
		if err := sim.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		return nil
	}

	switch c.Sensor.Driver {
	case DriverIIO:
		if c.Sensor.IIODevice == "" {
			return fmt.Errorf("%w: sensor.iio_device is required", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Sensor.Driver)
	}
	if c.Heater.GPIOPin < 0 {
		return fmt.Errorf("%w: heater.gpio_pin must not be negative", ErrInvalidConfig)
	}
	if c.Sensor.SPI && slices.Contains(spiPins, c.Heater.GPIOPin) {
		return fmt.Errorf("%w: pin %d", ErrPinCollision, c.Heater.GPIOPin)
	}
	return nil
}

// OvenConfig returns the controller settings including the PID gains.
func (c Config) OvenConfig() oven.Config {
	oc := c.Oven.Config
	oc.Gains = c.PID
	return oc
}

// SensorConfig selects the simulated sensor when the oven is simulated and
// the real one otherwise.
func (c Config) SensorConfig() sensor.Config {
	sc := sensor.Config{
		Kind:     sensor.KindReal,
		TimeStep: c.Oven.TimeStep,
		Attempts: c.Sensor.Attempts,
		Sim:      c.Sim,
	}
	if c.Oven.Simulate {
		sc.Kind = sensor.KindSimulated
	}
	sc.Sim.TimeStep = c.Oven.TimeStep
	sc.Sim.SleepTime = c.Oven.TimeStep
	return sc
}
