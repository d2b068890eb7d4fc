package main

import (
	"flag"
	"os"
	"strconv"
	"time"

	"github.com/uptrace/bun/driver/sqliteshim"
)

// Config holds runtime settings for the identityd server.
//
// Fields:
//   - HTTPAddr: bind address for the HTTP endpoint.
//   - DatabaseDSN: SQLite DSN, e.g. "file:identity.db?cache=shared".
//   - SigningKey: HMAC secret for signing tokens (HS256). Do not use the
//     development default in prod.
//   - TokenTTL: token lifetime.
//   - BcryptCost: work factor for password hashing.
//   - CORSOrigins: comma separated list of allowed origins.
type Config struct {
	HTTPAddr    string
	DatabaseDSN string
	SigningKey  string
	TokenTTL    time.Duration
	BcryptCost  int
	CORSOrigins string
	Debug       bool
	PingTimeout time.Duration
}

// LoadDefaults populates Config with development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":8978"
	c.DatabaseDSN = "file:identity.db?cache=shared&_fk=1"
	c.SigningKey = "development-signing-key"
	c.TokenTTL = 30 * time.Minute
	c.BcryptCost = 14
	c.CORSOrigins = "*"
	c.Debug = false
	c.PingTimeout = 5 * time.Second
}

func (c *Config) GetSigningKey() string {
	return c.SigningKey
}

func (c *Config) GetTokenTTL() time.Duration {
	return c.TokenTTL
}

func (c *Config) GetBcryptCost() int {
	return c.BcryptCost
}

func (c *Config) GetDSN() string {
	return c.DatabaseDSN
}

func (c *Config) GetDebug() bool {
	return c.Debug
}

func (c *Config) GetDriver() string {
	return sqliteshim.ShimName
}

func (c *Config) GetServer() string {
	return c.DatabaseDSN
}

func (c *Config) GetOtelIdentifier() string {
	return ""
}

func (c *Config) GetPingTimeout() time.Duration {
	return c.PingTimeout
}

// parseEnv overlays values from IDENTITYD_* environment variables.
func parseEnv(config *Config) {
	if val, ok := os.LookupEnv("IDENTITYD_HTTP_ADDR"); ok {
		config.HTTPAddr = val
	}

	if val, ok := os.LookupEnv("IDENTITYD_DATABASE_DSN"); ok {
		config.DatabaseDSN = val
	}

	if val, ok := os.LookupEnv("IDENTITYD_SIGNING_KEY"); ok {
		config.SigningKey = val
	}

	if val, ok := os.LookupEnv("IDENTITYD_TOKEN_TTL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			config.TokenTTL = dur
		}
	}

	if val, ok := os.LookupEnv("IDENTITYD_BCRYPT_COST"); ok {
		if cost, err := strconv.Atoi(val); err == nil {
			config.BcryptCost = cost
		}
	}

	if val, ok := os.LookupEnv("IDENTITYD_CORS_ORIGINS"); ok {
		config.CORSOrigins = val
	}

	if val, ok := os.LookupEnv("IDENTITYD_DEBUG"); ok {
		if debug, err := strconv.ParseBool(val); err == nil {
			config.Debug = debug
		}
	}
}

// parseFlags overlays values from command-line flags. Flags win over
// environment variables.
func parseFlags(config *Config) {
	flag.StringVar(&config.HTTPAddr, "addr", config.HTTPAddr, "address and port to run server")
	flag.StringVar(&config.DatabaseDSN, "dsn", config.DatabaseDSN, "database DSN")
	flag.StringVar(&config.SigningKey, "signing-key", config.SigningKey, "token signing key")
	flag.DurationVar(&config.TokenTTL, "token-ttl", config.TokenTTL, "token lifetime")
	flag.IntVar(&config.BcryptCost, "bcrypt-cost", config.BcryptCost, "bcrypt work factor")
	flag.StringVar(&config.CORSOrigins, "cors-origins", config.CORSOrigins, "comma separated allowed origins")
	flag.BoolVar(&config.Debug, "debug", config.Debug, "enable debug output")
	flag.Parse()
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from the environment and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
