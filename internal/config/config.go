package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort    string
	StorageDriver string // "postgres" hoặc "memory"
	DBHost        string
	DBPort        int
	DBUser        string
	DBPassword    string
	DBName        string
	DBSslMode     string

	RedisAddr     string // Rỗng: cache broadcast trong bộ nhớ
	RedisPassword string

	AWSRegion                 string
	SQSGateQueueURL           string
	IoTMQTTEndpoint           string
	IoTAvailabilityTopicPrefix string
	LPREnabled                bool

	JWTSecret          string
	JWTExpirationHours time.Duration
	AdminUsername      string // Rỗng: không tạo tài khoản admin khi khởi động
	AdminPassword      string

	ReconcileSchedule      string        // cron spec, ví dụ "@every 5m"
	LotLockTimeout         time.Duration // thời gian chờ tối đa khóa theo bãi
	MaxAdvanceBooking      time.Duration // 0: không giới hạn
	MaxReservationDuration time.Duration // 0: không giới hạn
	Location               *time.Location
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		log.Printf("Cảnh báo: Không thể tải file .env: %v", err)
	}

	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	jwtExpHours, _ := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "24"))
	lprEnabled, _ := strconv.ParseBool(getEnv("LPR_ENABLED", "false"))

	tzName := getEnv("TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		log.Printf("Cảnh báo: TIMEZONE '%s' không hợp lệ (%v), dùng UTC", tzName, err)
		loc = time.UTC
	}

	return &Config{
		ServerPort:    getEnv("SERVER_PORT", "8080"),
		StorageDriver: getEnv("STORAGE_DRIVER", "postgres"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        dbPort,
		DBUser:        getEnv("DB_USER", "parksmart"),
		DBPassword:    getEnv("DB_PASSWORD", "parksmart"),
		DBName:        getEnv("DB_NAME", "parksmart"),
		DBSslMode:     getEnv("DB_SSLMODE", "disable"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		AWSRegion:                  getEnv("AWS_REGION", "ap-southeast-1"),
		SQSGateQueueURL:            getEnv("SQS_GATE_QUEUE_URL", ""),
		IoTMQTTEndpoint:            getEnv("IOT_MQTT_ENDPOINT", ""),
		IoTAvailabilityTopicPrefix: getEnv("IOT_AVAILABILITY_TOPIC_PREFIX", ""),
		LPREnabled:                 lprEnabled,

		JWTSecret:          getEnv("JWT_SECRET", "change-me-in-production"),
		JWTExpirationHours: time.Duration(jwtExpHours) * time.Hour,
		AdminUsername:      getEnv("ADMIN_USERNAME", ""),
		AdminPassword:      getEnv("ADMIN_PASSWORD", ""),

		ReconcileSchedule:      getEnv("RECONCILE_SCHEDULE", "@every 5m"),
		LotLockTimeout:         getDuration("LOT_LOCK_TIMEOUT", 3*time.Second),
		MaxAdvanceBooking:      getDuration("MAX_ADVANCE_BOOKING", 30*24*time.Hour),
		MaxReservationDuration: getDuration("MAX_RESERVATION_DURATION", 24*time.Hour),
		Location:               loc,
	}
}

// AWSEnabled: chỉ khởi tạo AWS SDK khi có ít nhất một tích hợp được cấu hình.
func (c *Config) AWSEnabled() bool {
	return c.SQSGateQueueURL != "" || c.IoTAvailabilityTopicPrefix != "" || c.LPREnabled
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Biến môi trường '%s' không được đặt, sử dụng giá trị mặc định: '%s'", key, fallback)
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, fallback.String())
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("Cảnh báo: '%s=%s' không phải duration hợp lệ, dùng mặc định %s", key, raw, fallback)
		return fallback
	}
	return d
}
