package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DBEnabled  bool
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis
	RedisEnabled  bool
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// MQTT
	MQTTBroker        string
	MQTTClientID      string
	MQTTUsername      string
	MQTTPassword      string
	MQTTCommandTopic  string
	MQTTStatusTopic   string
	MQTTResponseTopic string
	MQTTPositionTopic string
	MQTTHeadingTopic  string

	// HTTP
	HTTPAddr string

	// Vehicle
	VehicleID    string
	ActuatorMode string // gpio | dry-run
	GPIOChip     string
	RudderLine   int
	MotorLine    int

	// Navigation files
	ParamFile    string
	WaypointFile string
	LogDir       string

	// Control loop
	StatusEvery  int
	WaypointPoll time.Duration
	StatusTTL    time.Duration

	// Application
	LogLevel string
}

func Load() (*Config, error) {
	// .env 파일 로드 (없으면 환경변수만 사용)
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	rudderLine, _ := strconv.Atoi(getEnv("GPIO_RUDDER_LINE", "18"))
	motorLine, _ := strconv.Atoi(getEnv("GPIO_MOTOR_LINE", "23"))
	statusEvery, _ := strconv.Atoi(getEnv("STATUS_EVERY", "0"))
	pollMillis, _ := strconv.Atoi(getEnv("WAYPOINT_POLL_MS", "1000"))
	statusTTL, _ := strconv.Atoi(getEnv("STATUS_TTL_SEC", "60"))
	dbEnabled, _ := strconv.ParseBool(getEnv("DB_ENABLED", "false"))
	redisEnabled, _ := strconv.ParseBool(getEnv("REDIS_ENABLED", "false"))

	vehicleID := getEnv("VEHICLE_ID", "BOAT001")

	return &Config{
		DBEnabled:         dbEnabled,
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBUser:            getEnv("DB_USER", "postgres"),
		DBPassword:        getEnv("DB_PASSWORD", "password"),
		DBName:            getEnv("DB_NAME", "boat_navigator"),
		RedisEnabled:      redisEnabled,
		RedisHost:         getEnv("REDIS_HOST", "localhost"),
		RedisPort:         getEnv("REDIS_PORT", "6379"),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           redisDB,
		MQTTBroker:        getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID:      getEnv("MQTT_CLIENT_ID", vehicleID+"_NAVIGATOR"),
		MQTTUsername:      getEnv("MQTT_USERNAME", ""),
		MQTTPassword:      getEnv("MQTT_PASSWORD", ""),
		MQTTCommandTopic:  getEnv("MQTT_COMMAND_TOPIC", "navigator/"+vehicleID+"/command"),
		MQTTStatusTopic:   getEnv("MQTT_STATUS_TOPIC", "navigator/"+vehicleID+"/status"),
		MQTTResponseTopic: getEnv("MQTT_RESPONSE_TOPIC", "navigator/"+vehicleID+"/response"),
		MQTTPositionTopic: getEnv("MQTT_POSITION_TOPIC", "navigator/"+vehicleID+"/sensor/position"),
		MQTTHeadingTopic:  getEnv("MQTT_HEADING_TOPIC", "navigator/"+vehicleID+"/sensor/heading"),
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		VehicleID:         vehicleID,
		ActuatorMode:      getEnv("ACTUATOR_MODE", "dry-run"),
		GPIOChip:          getEnv("GPIO_CHIP", "gpiochip0"),
		RudderLine:        rudderLine,
		MotorLine:         motorLine,
		ParamFile:         getEnv("PARAM_FILE", "settings.rf"),
		WaypointFile:      getEnv("WAYPOINT_FILE", "waypoints.txt"),
		LogDir:            getEnv("LOG_DIR", "logs"),
		StatusEvery:       statusEvery,
		WaypointPoll:      time.Duration(pollMillis) * time.Millisecond,
		StatusTTL:         time.Duration(statusTTL) * time.Second,
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
