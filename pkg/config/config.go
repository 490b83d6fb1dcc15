package config

import (
	"time"
)

type DB struct {
	// Url is a postgres DSN or sqlite://<path>.
	Url          string        `envconfig:"URL" default:"sqlite://fxrates.db"`
	MaxOpenConns int           `envconfig:"MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns int           `envconfig:"MAX_IDLE_CONNS" default:"25"`
	ConnMaxLife  time.Duration `envconfig:"CONN_MAX_LIFETIME" default:"1h"`
}

type Redis struct {
	URL       string        `envconfig:"URL"`
	KeyPrefix string        `envconfig:"KEY_PREFIX" default:"fxrates:"`
	Retention time.Duration `envconfig:"RETENTION" default:"168h"`
}

type RateLimit struct {
	MaxRequests int           `envconfig:"MAX_REQUESTS" default:"100"`
	Window      time.Duration `envconfig:"WINDOW" default:"1m"`
}

type Log struct {
	Level      int    `envconfig:"LEVEL" default:"0"`
	Format     string `envconfig:"FORMAT" default:"text"`
	TimeFormat string `envconfig:"TIME_FORMAT" default:"2006-01-02 15:04:05"`
	Prefix     string `envconfig:"PREFIX" default:"[fxrates]"`
}

type Server struct {
	Scheme string `envconfig:"SCHEME" default:"http"`
	Host   string `envconfig:"HOST" default:"localhost"`
	Port   int    `envconfig:"PORT" default:"3000"`
}

// Exchange tunes resolution and ingestion.
type Exchange struct {
	TTL             time.Duration `envconfig:"TTL" default:"1h"`
	StaleAfter      time.Duration `envconfig:"STALE_AFTER" default:"24h"`
	FetchTimeout    time.Duration `envconfig:"FETCH_TIMEOUT" default:"10s"`
	RefreshInterval time.Duration `envconfig:"REFRESH_INTERVAL" default:"1h"`
	// Bases are tried in order when triangulating.
	Bases           []string      `envconfig:"BASES" default:"USD,PHP"`
	InvertedQuality float64       `envconfig:"INVERTED_QUALITY" default:"0.95"`
	CacheSize       int           `envconfig:"CACHE_SIZE" default:"4096"`
	CacheTTL        time.Duration `envconfig:"CACHE_TTL" default:"5m"`
	SeedCurrencies  bool          `envconfig:"SEED_CURRENCIES" default:"true"`
}

//revive:disable
type Fiat struct {
	Enabled   bool          `envconfig:"ENABLED" default:"true"`
	ApiKey    string        `envconfig:"API_KEY"`
	ApiUrl    string        `envconfig:"API_URL" default:"https://open.er-api.com/v6/latest/{base}"`
	Base      string        `envconfig:"BASE" default:"USD"`
	RatesPath string        `envconfig:"RATES_PATH" default:"rates"`
	Timeout   time.Duration `envconfig:"HTTP_TIMEOUT" default:"10s"`
}

type Crypto struct {
	Enabled      bool          `envconfig:"ENABLED" default:"true"`
	ApiKey       string        `envconfig:"API_KEY"`
	ApiUrl       string        `envconfig:"API_URL" default:"https://api.coingecko.com/api/v3"`
	VsCurrencies []string      `envconfig:"VS_CURRENCIES" default:"usd,php"`
	Timeout      time.Duration `envconfig:"HTTP_TIMEOUT" default:"10s"`
}

type SafeRate struct {
	Enabled bool          `envconfig:"ENABLED" default:"false"`
	Url     string        `envconfig:"URL"`
	ApiKey  string        `envconfig:"API_KEY"`
	Timeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"5s"`
}

//revive:enable

type EventBus struct {
	// Driver is one of memory, redis or kafka.
	Driver string `envconfig:"DRIVER" default:"memory"`
	// RedisURL overrides Redis.URL for the redis driver.
	RedisURL     string `envconfig:"REDIS_URL"`
	KafkaBrokers string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	GroupID      string `envconfig:"GROUP_ID" default:"fxrates"`
	TopicPrefix  string `envconfig:"TOPIC_PREFIX" default:"fxrates.events"`
}

type App struct {
	Env       string     `envconfig:"APP_ENV" default:"development"`
	Server    *Server    `envconfig:"SERVER"`
	Log       *Log       `envconfig:"LOG"`
	DB        *DB        `envconfig:"DATABASE"`
	Redis     *Redis     `envconfig:"REDIS"`
	RateLimit *RateLimit `envconfig:"RATE_LIMIT"`
	Exchange  *Exchange  `envconfig:"EXCHANGE"`
	Fiat      *Fiat      `envconfig:"FIAT_PROVIDER"`
	Crypto    *Crypto    `envconfig:"CRYPTO_PROVIDER"`
	SafeRate  *SafeRate  `envconfig:"SAFE_RATE"`
	EventBus  *EventBus  `envconfig:"EVENT_BUS"`
}
