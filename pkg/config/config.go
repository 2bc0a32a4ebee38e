package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type APIConfig struct {
	Port            string
	DBDSN           string
	RMQURL          string
	EventsQueue     string
	TrackingBaseURL string
	TrackingSecret  string
	Migrate         bool
}

type SchedulerConfig struct {
	DBDSN       string
	RMQURL      string
	EventsQueue string
	RedisURL    string
	MetricsPort string

	TickInterval  time.Duration
	BatchSize     int
	LeaseTTL      time.Duration
	ShutdownGrace time.Duration

	AutoRequeue  bool
	RequeueLimit int
	RequeueAfter time.Duration

	TrackingBaseURL string
	TrackingSecret  string
	DefaultRegion   string
	ChannelRate     float64

	SendGridAPIKey string
	MailFrom       string
	MailFromName   string

	MetaBaseURL        string
	MetaAccessToken    string
	WhatsAppPhoneID    string
	InstagramAccountID string
}

var (
	API       APIConfig
	Scheduler SchedulerConfig
)

// loadDotenv reads .env when present; OS environment always wins.
func loadDotenv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env not loaded: %v", err)
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("required env %s is not set", k)
	}
	return v
}

func getInt(k string, def int) int {
	v, err := strconv.Atoi(os.Getenv(k))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func getFloat(k string, def float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(k), 64)
	if err != nil || v < 0 {
		return def
	}
	return v
}

func getBool(k string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(k))
	if err != nil {
		return def
	}
	return v
}

func getDuration(k string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(k))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func MustLoadAPI() {
	loadDotenv()
	API = APIConfig{
		Port:            getenv("PORT", "8080"),
		DBDSN:           mustEnv("DB_DSN"),
		RMQURL:          os.Getenv("RMQ_URL"),
		EventsQueue:     getenv("EVENTS_QUEUE", "campaign_events"),
		TrackingBaseURL: os.Getenv("TRACKING_BASE_URL"),
		TrackingSecret:  os.Getenv("TRACKING_SECRET"),
		Migrate:         getBool("DB_MIGRATE", false),
	}
}

func MustLoadScheduler() {
	loadDotenv()
	Scheduler = SchedulerConfig{
		DBDSN:       mustEnv("DB_DSN"),
		RMQURL:      os.Getenv("RMQ_URL"),
		EventsQueue: getenv("EVENTS_QUEUE", "campaign_events"),
		RedisURL:    os.Getenv("REDIS_URL"),
		MetricsPort: getenv("METRICS_PORT", "9091"),

		TickInterval:  getDuration("TICK_INTERVAL", 5*time.Second),
		BatchSize:     getInt("DELIVERY_BATCH_SIZE", 100),
		LeaseTTL:      getDuration("TICK_LEASE_TTL", 30*time.Second),
		ShutdownGrace: getDuration("SHUTDOWN_GRACE", 2*time.Minute),

		AutoRequeue:  getBool("AUTO_REQUEUE", false),
		RequeueLimit: getInt("REQUEUE_LIMIT", 50),
		RequeueAfter: getDuration("REQUEUE_AFTER", time.Minute),

		TrackingBaseURL: os.Getenv("TRACKING_BASE_URL"),
		TrackingSecret:  os.Getenv("TRACKING_SECRET"),
		DefaultRegion:   getenv("PHONE_DEFAULT_REGION", "US"),
		ChannelRate:     getFloat("CHANNEL_RATE_PER_SEC", 0),

		SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
		MailFrom:       getenv("MAIL_FROM", "no-reply@example.com"),
		MailFromName:   getenv("MAIL_FROM_NAME", "Campaigns"),

		MetaBaseURL:        getenv("META_GRAPH_URL", "https://graph.facebook.com/v19.0"),
		MetaAccessToken:    os.Getenv("META_ACCESS_TOKEN"),
		WhatsAppPhoneID:    os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
		InstagramAccountID: os.Getenv("INSTAGRAM_ACCOUNT_ID"),
	}
}
