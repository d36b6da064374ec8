package config

import (
	"errors"
	"log"
	"net"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// DomainConfigHolder exposes the current domain settings and follows file
// changes without a restart. The env-derived DomainConfig is the fallback
// when no domains.yml is present.
type DomainConfigHolder struct {
	current atomic.Value // holds DomainConfig
}

func NewDomainConfigHolder(cfg Config) (*DomainConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("domains")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/linkrail/config") // Volume-mounted config
	v.AddConfigPath("/etc/linkrail")            // System config
	v.AddConfigPath(".")                        // Current directory (dev mode)

	v.SetEnvPrefix("LINKRAIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := cfg.Domains
	v.SetDefault("domains.maxDomainsPerTenant", defaults.MaxDomainsPerTenant)
	v.SetDefault("domains.cacheTtlSeconds", defaults.CacheTTLSeconds)
	v.SetDefault("domains.sweepIntervalSeconds", defaults.SweepIntervalSeconds)
	v.SetDefault("domains.dnsTimeoutMs", defaults.DNSTimeoutMs)
	v.SetDefault("domains.nameserver", defaults.Nameserver)
	v.SetDefault("domains.cnameTarget", defaults.CNAMETarget)
	v.SetDefault("domains.serverIp", defaults.ServerIP)
	v.SetDefault("domains.verifyPollSeconds", defaults.VerifyPollSeconds)

	watchable := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		watchable = false
	}

	var current DomainConfig
	if err := v.UnmarshalKey("domains", &current); err != nil {
		return nil, err
	}
	if err := validateDomainConfig(current); err != nil {
		return nil, err
	}

	holder := &DomainConfigHolder{}
	holder.current.Store(current)

	if watchable {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated DomainConfig
			if err := v.UnmarshalKey("domains", &updated); err != nil {
				log.Printf("[domain-config] reload failed: %v", err)
				return
			}
			if err := validateDomainConfig(updated); err != nil {
				log.Printf("[domain-config] invalid config ignored: %v", err)
				return
			}
			holder.current.Store(updated)
			log.Printf("[domain-config] reloaded from %s", e.Name)
		})
	}

	return holder, nil
}

// NewStaticDomainConfigHolder wraps a fixed DomainConfig with no file
// watching. Used by tests and one-shot tooling.
func NewStaticDomainConfigHolder(cfg DomainConfig) (*DomainConfigHolder, error) {
	if err := validateDomainConfig(cfg); err != nil {
		return nil, err
	}
	holder := &DomainConfigHolder{}
	holder.current.Store(cfg)
	return holder, nil
}

func (h *DomainConfigHolder) Get() DomainConfig {
	return h.current.Load().(DomainConfig)
}

func validateDomainConfig(cfg DomainConfig) error {
	if cfg.MaxDomainsPerTenant <= 0 {
		return errors.New("domains.maxDomainsPerTenant must be positive")
	}
	if cfg.CacheTTLSeconds <= 0 {
		return errors.New("domains.cacheTtlSeconds must be positive")
	}
	if cfg.DNSTimeoutMs <= 0 {
		return errors.New("domains.dnsTimeoutMs must be positive")
	}
	if strings.TrimSpace(cfg.CNAMETarget) == "" {
		return errors.New("domains.cnameTarget cannot be empty")
	}
	if net.ParseIP(strings.TrimSpace(cfg.ServerIP)) == nil {
		return errors.New("domains.serverIp must be a valid IP address")
	}
	return nil
}
