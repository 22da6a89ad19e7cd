package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config holds all application configuration values.
type Config struct {
	// IMU link: "serial", "i2c" or "sim"
	IMUSource       string
	IMUSerialPort   string
	IMUBaudRate     int
	IMUReadTimeout  int // milliseconds
	IMUI2CBus       string
	IMUI2CAddr      uint16
	IMUPollInterval int // milliseconds, i2c and sim

	// Classification
	AccelDominantThreshold float64 // g
	WallSectorWidth        float64 // degrees

	// Motor controller
	MotorEnable     bool
	MotorSerialPort string
	MotorBaudRate   int
	MotorAddress    byte

	// MQTT (optional, publishing is off when MQTTBroker is empty)
	MQTTBroker          string
	MQTTClientID        string
	MQTTClientIDConsole string
	TopicIMU            string

	// Web Server
	WebServerPort int
	WebStaticDir  string

	// Logging: panic, fatal, error, warn, info, debug, trace
	LogLevel string
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: unexported so other packages cannot modify it without locking.
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: RWMutex protects concurrent access; Get() takes the read lock.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the configuration used for keys missing from the file.
// Values match the robot's wiring: IMU on the second PL011 UART at 115200,
// Sabertooth on the first at 9600.
func Default() *Config {
	return &Config{
		IMUSource:              "serial",
		IMUSerialPort:          "/dev/ttyAMA2",
		IMUBaudRate:            115200,
		IMUReadTimeout:         100,
		IMUI2CBus:              "1",
		IMUI2CAddr:             0x50,
		IMUPollInterval:        10,
		AccelDominantThreshold: 0.7,
		WallSectorWidth:        90,
		MotorEnable:            true,
		MotorSerialPort:        "/dev/ttyAMA0",
		MotorBaudRate:          9600,
		MotorAddress:           128,
		MQTTClientID:           "wall-robot",
		MQTTClientIDConsole:    "wall-robot-console",
		TopicIMU:               "robot/imu",
		WebServerPort:          8000,
		WebStaticDir:           "ui",
		LogLevel:               "info",
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseInt(key, value string, min, max int) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v < min || v > max {
		return 0, fmt.Errorf("%s must be %d-%d, got %d", key, min, max, v)
	}
	return v, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// IMU
	case "IMU_SOURCE":
		c.IMUSource = strings.ToLower(value)
	case "IMU_SERIAL_PORT":
		c.IMUSerialPort = value
	case "IMU_BAUD_RATE":
		rate, err := parseInt(key, value, 1, 4_000_000)
		if err != nil {
			return err
		}
		c.IMUBaudRate = rate
	case "IMU_READ_TIMEOUT_MS":
		ms, err := parseInt(key, value, 0, 25_500)
		if err != nil {
			return err
		}
		c.IMUReadTimeout = ms
	case "IMU_I2C_BUS":
		c.IMUI2CBus = value
	case "IMU_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 7)
		if err != nil {
			return fmt.Errorf("invalid IMU_I2C_ADDR %q: %w", value, err)
		}
		c.IMUI2CAddr = uint16(addr)
	case "IMU_POLL_INTERVAL_MS":
		ms, err := parseInt(key, value, 1, 10_000)
		if err != nil {
			return err
		}
		c.IMUPollInterval = ms

	// Classification
	case "ACCEL_DOMINANT_THRESHOLD_G":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid ACCEL_DOMINANT_THRESHOLD_G %q: %w", value, err)
		}
		if v <= 0 || v > 16 {
			return fmt.Errorf("ACCEL_DOMINANT_THRESHOLD_G must be in (0, 16], got %v", v)
		}
		c.AccelDominantThreshold = v
	case "WALL_SECTOR_WIDTH_DEG":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid WALL_SECTOR_WIDTH_DEG %q: %w", value, err)
		}
		c.WallSectorWidth = v

	// Motor controller
	case "MOTOR_ENABLE":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid MOTOR_ENABLE %q: %w", value, err)
		}
		c.MotorEnable = v
	case "MOTOR_SERIAL_PORT":
		c.MotorSerialPort = value
	case "MOTOR_BAUD_RATE":
		rate, err := parseInt(key, value, 1, 4_000_000)
		if err != nil {
			return err
		}
		c.MotorBaudRate = rate
	case "MOTOR_ADDRESS":
		addr, err := parseInt(key, value, 128, 135)
		if err != nil {
			return err
		}
		c.MotorAddress = byte(addr)

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "TOPIC_IMU":
		c.TopicIMU = value

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := parseInt(key, value, 1, 65535)
		if err != nil {
			return err
		}
		c.WebServerPort = port
	case "WEB_STATIC_DIR":
		c.WebStaticDir = value

	case "LOG_LEVEL":
		c.LogLevel = strings.ToLower(value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks cross-field requirements.
func (c *Config) validate() error {
	switch c.IMUSource {
	case "serial":
		if c.IMUSerialPort == "" {
			return fmt.Errorf("IMU_SERIAL_PORT is required when IMU_SOURCE=serial")
		}
		if c.IMUReadTimeout == 0 {
			return fmt.Errorf("IMU_READ_TIMEOUT_MS must be > 0 so the telemetry loop can yield")
		}
	case "i2c", "sim":
	default:
		return fmt.Errorf("IMU_SOURCE must be serial, i2c or sim, got %q", c.IMUSource)
	}
	if w := c.WallSectorWidth; w <= 0 || w > 180 || 360/w != float64(int(360/w)) {
		return fmt.Errorf("WALL_SECTOR_WIDTH_DEG must divide 360, got %v", w)
	}
	if c.MotorEnable && c.MotorSerialPort == "" {
		return fmt.Errorf("MOTOR_SERIAL_PORT is required when MOTOR_ENABLE=true")
	}
	if c.MQTTBroker != "" && c.TopicIMU == "" {
		return fmt.Errorf("TOPIC_IMU is required when MQTT_BROKER is set")
	}
	return nil
}

// IMUReadTimeoutDuration returns IMUReadTimeout as a time.Duration.
func (c *Config) IMUReadTimeoutDuration() time.Duration {
	return time.Duration(c.IMUReadTimeout) * time.Millisecond
}

// IMUPollIntervalDuration returns IMUPollInterval as a time.Duration.
func (c *Config) IMUPollIntervalDuration() time.Duration {
	return time.Duration(c.IMUPollInterval) * time.Millisecond
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
