package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration. Feature defaults live here so
// main stays lean and services receive plain values.
type Server struct {
	Addr          string
	DatabaseURL   string
	RedisAddr     string
	KafkaBrokers  []string
	KafkaTopic    string
	MediaBucket   string
	MediaRegion   string
	JWTSigningKey string
	AdminToken    string

	// ProximityRadiusMeters gates validation admission.
	ProximityRadiusMeters float64
	// GeolocationTimeout bounds observer coordinate acquisition.
	GeolocationTimeout time.Duration

	// HTTPWriteTimeout and HTTPIdleTimeout bound the listener; zero selects
	// the httpserver package defaults.
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// FromEnv builds a Server config from environment variables. Empty optional
// values (database, redis, kafka, media) select in-process fallbacks.
func FromEnv() Server {
	addr := os.Getenv("WATCHPOST_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default; override in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	radius := 500.0
	if raw := os.Getenv("PROXIMITY_RADIUS_METERS"); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil && parsed > 0 {
			radius = parsed
		}
	}

	geoTimeout := 10 * time.Second
	if raw := os.Getenv("GEOLOCATION_TIMEOUT"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			geoTimeout = parsed
		}
	}

	var writeTimeout, idleTimeout time.Duration
	if raw := os.Getenv("HTTP_WRITE_TIMEOUT"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			writeTimeout = parsed
		}
	}
	if raw := os.Getenv("HTTP_IDLE_TIMEOUT"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			idleTimeout = parsed
		}
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		for _, broker := range strings.Split(raw, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				brokers = append(brokers, broker)
			}
		}
	}

	topic := os.Getenv("KAFKA_AUDIT_TOPIC")
	if topic == "" {
		topic = "watchpost.audit"
	}

	return Server{
		Addr:                  addr,
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		KafkaBrokers:          brokers,
		KafkaTopic:            topic,
		MediaBucket:           os.Getenv("MEDIA_BUCKET"),
		MediaRegion:           os.Getenv("MEDIA_REGION"),
		JWTSigningKey:         jwtSigningKey,
		AdminToken:            os.Getenv("ADMIN_TOKEN"),
		ProximityRadiusMeters: radius,
		GeolocationTimeout:    geoTimeout,
		HTTPWriteTimeout:      writeTimeout,
		HTTPIdleTimeout:       idleTimeout,
	}
}
