package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Module provides the application configuration.
var Module = fx.Options(
	fx.Provide(Load),
	fx.Provide(NewDomainConfigHolder),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Domains DomainConfig
	Certs   CertConfig
}

// DomainConfig controls custom-domain verification behavior.
type DomainConfig struct {
	MaxDomainsPerTenant  int    `mapstructure:"maxDomainsPerTenant"`
	CacheTTLSeconds      int    `mapstructure:"cacheTtlSeconds"`
	SweepIntervalSeconds int    `mapstructure:"sweepIntervalSeconds"`
	DNSTimeoutMs         int    `mapstructure:"dnsTimeoutMs"`
	Nameserver           string `mapstructure:"nameserver"`
	CNAMETarget          string `mapstructure:"cnameTarget"`
	ServerIP             string `mapstructure:"serverIp"`
	VerifyPollSeconds    int    `mapstructure:"verifyPollSeconds"`
}

// CertConfig selects and configures the certificate provider.
type CertConfig struct {
	Provider            string
	IssueTimeoutSeconds int

	ACMEDirectoryURL string
	ACMEEmail        string
	ACMEHTTP01Addr   string

	OriginCAEndpoint string
	OriginCAKey      string
}

// Provider names accepted by CERT_PROVIDER.
const (
	ProviderACME     = "acme"
	ProviderOriginCA = "origin_ca"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "linkrail"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),

		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "postgres"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     int(getenvInt64("DATABASE_MAX_IDLE_CONN", 5)),
		DBMaxOpenConn:     int(getenvInt64("DATABASE_MAX_OPEN_CONN", 20)),
		DBConnMaxLifetime: int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 3600)),
		DBConnMaxIdleTime: int(getenvInt64("DATABASE_CONN_MAX_IDLE_TIME", 600)),

		Domains: DomainConfig{
			MaxDomainsPerTenant:  int(getenvInt64("MAX_DOMAINS_PER_TENANT", 5)),
			CacheTTLSeconds:      int(getenvInt64("DNS_CACHE_TTL_SECONDS", 300)),
			SweepIntervalSeconds: int(getenvInt64("DNS_SWEEP_INTERVAL_SECONDS", 60)),
			DNSTimeoutMs:         int(getenvInt64("DNS_TIMEOUT_MS", 5000)),
			Nameserver:           getenv("DNS_NAMESERVER", ""),
			CNAMETarget:          getenv("PLATFORM_CNAME_TARGET", "domains.linkrail.io"),
			ServerIP:             getenv("PLATFORM_SERVER_IP", "203.0.113.10"),
			VerifyPollSeconds:    int(getenvInt64("VERIFY_POLL_INTERVAL_SECONDS", 0)),
		},
		Certs: CertConfig{
			Provider:            strings.ToLower(strings.TrimSpace(getenv("CERT_PROVIDER", ProviderACME))),
			IssueTimeoutSeconds: int(getenvInt64("CERT_ISSUE_TIMEOUT_SECONDS", 120)),
			ACMEDirectoryURL:    getenv("ACME_DIRECTORY_URL", ""),
			ACMEEmail:           getenv("ACME_EMAIL", ""),
			ACMEHTTP01Addr:      getenv("ACME_HTTP01_ADDR", ""),
			OriginCAEndpoint:    getenv("ORIGIN_CA_ENDPOINT", "https://api.cloudflare.com/client/v4/certificates"),
			OriginCAKey:         getenv("ORIGIN_CA_KEY", ""),
		},
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}
