package config

import (
	"time"

	"CrossChat/tools"
)

// Config collects every knob of the gateway. All values come from the
// environment; empty Mongo/Redis/NATS settings disable the
// corresponding integration.
type Config struct {
	Addr           string
	GatewayID      string
	JWTSecret      string
	AllowedOrigins []string

	MongoURI      string
	MongoDatabase string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	PresenceTTL   time.Duration

	NatsServers     []string
	NatsName        string
	MessageSubject  string
	PresenceSubject string

	SendQueueSize int
	FanoutWorkers int
	FanoutQueue   int
}

func Load() Config {
	return Config{
		Addr:           tools.GetEnv("ADDR", ":3000"),
		GatewayID:      tools.GetEnv("GATEWAY_ID", "gw-1"),
		JWTSecret:      tools.GetEnv("JWT_SECRET", "dev-secret"),
		AllowedOrigins: tools.SplitList(tools.GetEnv("ALLOWED_ORIGINS", "*")),

		MongoURI:      tools.GetEnv("MONGODB_URI", ""),
		MongoDatabase: tools.GetEnv("MONGODB_DATABASE", "crosschat"),

		RedisAddr:     tools.GetEnv("REDIS_ADDR", ""),
		RedisPassword: tools.GetEnv("REDIS_PASSWORD", ""),
		RedisDB:       tools.GetEnvInt("REDIS_DB", 0),
		PresenceTTL:   time.Duration(tools.GetEnvInt("PRESENCE_TTL_SEC", 300)) * time.Second,

		NatsServers:     tools.SplitList(tools.GetEnv("NATS_SERVERS", "")),
		NatsName:        tools.GetEnv("NATS_NAME", "crosschat-gateway"),
		MessageSubject:  tools.GetEnv("MESSAGE_SUBJECT", "im.events.message"),
		PresenceSubject: tools.GetEnv("PRESENCE_SUBJECT", "im.events.presence"),

		SendQueueSize: tools.GetEnvInt("SEND_QUEUE_SIZE", 256),
		FanoutWorkers: tools.GetEnvInt("FANOUT_WORKERS", 4),
		FanoutQueue:   tools.GetEnvInt("FANOUT_QUEUE", 1024),
	}
}
