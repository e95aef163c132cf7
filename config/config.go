package config

import (
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"meshledger/blockchain"
	"meshledger/node"
)

// EnvPrefix scopes environment overrides, e.g. MESHLEDGER_PORT or MESHLEDGER_LOG_LEVEL
const EnvPrefix = "MESHLEDGER"

// Keys shared by flags, environment and config files
const (
	KeyConfigFile     = "config"
	KeyPort           = "port"
	KeyCurrentServer  = "current-server"
	KeyNodeAddress    = "node-address"
	KeyDifficulty     = "difficulty"
	KeyPeerTimeout    = "peer-timeout"
	KeyMaxConcurrency = "max-concurrency"
	KeyLogLevel       = "log.level"
	KeyLogFormat      = "log.format"
	KeyMetricsEnabled = "metrics.enabled"
)

type Config struct {
	Port           string
	CurrentServer  string
	NodeAddress    string
	Difficulty     int
	PeerTimeout    time.Duration
	MaxConcurrency int
	Log            LogConfig
	Metrics        MetricsConfig
}

type LogConfig struct {
	Level  string // debug|info|warn|error
	Format string // json|text|pretty
}

type MetricsConfig struct {
	Enabled bool
}

func Default() Config {
	return Config{
		Port:           "3001",
		Difficulty:     blockchain.Difficulty,
		PeerTimeout:    node.DefaultPeerTimeout,
		MaxConcurrency: node.DefaultMaxConcurrency,
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// BindFlags registers every node setting on a cobra command's flag set
func BindFlags(flags *pflag.FlagSet) {
	def := Default()

	flags.String(KeyConfigFile, "", "Optional config file (yaml, json or toml)")
	flags.String(KeyPort, def.Port, "HTTP listen port")
	flags.String(KeyCurrentServer, "", "URL peers reach this node at (default http://localhost:<port>)")
	flags.String(KeyNodeAddress, "", "Address credited with mining rewards (generated when empty)")
	flags.Int(KeyDifficulty, def.Difficulty, "Leading zero hex digits required of block hashes; shared by the whole network")
	flags.Duration(KeyPeerTimeout, def.PeerTimeout, "Timeout of a single peer call")
	flags.Int(KeyMaxConcurrency, def.MaxConcurrency, "Maximum concurrent peer calls per fan-out")
	flags.String(KeyLogLevel, def.Log.Level, "Log level: debug|info|warn|error")
	flags.String(KeyLogFormat, def.Log.Format, "Log format: json|text|pretty")
	flags.Bool(KeyMetricsEnabled, def.Metrics.Enabled, "Expose Prometheus metrics at /metrics")
}

// Load resolves settings from flags, MESHLEDGER_* environment variables and
// an optional config file, in that order of precedence
func Load(v *viper.Viper, flags *pflag.FlagSet) (Config, error) {
	if err := v.BindPFlags(flags); err != nil {
		return Config{}, errors.Wrap(err, "bind flags")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file := v.GetString(KeyConfigFile); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "read config file %s", file)
		}
	}

	cfg := Config{
		Port:           strings.TrimSpace(v.GetString(KeyPort)),
		CurrentServer:  strings.TrimSpace(v.GetString(KeyCurrentServer)),
		NodeAddress:    strings.TrimSpace(v.GetString(KeyNodeAddress)),
		Difficulty:     v.GetInt(KeyDifficulty),
		PeerTimeout:    v.GetDuration(KeyPeerTimeout),
		MaxConcurrency: v.GetInt(KeyMaxConcurrency),
		Log: LogConfig{
			Level:  strings.TrimSpace(v.GetString(KeyLogLevel)),
			Format: strings.TrimSpace(v.GetString(KeyLogFormat)),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool(KeyMetricsEnabled),
		},
	}
	if cfg.CurrentServer == "" {
		cfg.CurrentServer = "http://localhost:" + cfg.Port
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port <= 0 || port > 65535 {
		return errors.Errorf("invalid port: %q", c.Port)
	}

	u, err := url.Parse(c.CurrentServer)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.Errorf("current-server must be an http(s) url: %q", c.CurrentServer)
	}

	if c.Difficulty < 1 || c.Difficulty > 64 {
		return errors.Errorf("difficulty out of range: %d", c.Difficulty)
	}
	if c.PeerTimeout <= 0 {
		return errors.Errorf("peer-timeout must be positive: %s", c.PeerTimeout)
	}
	if c.MaxConcurrency <= 0 {
		return errors.Errorf("max-concurrency must be positive: %d", c.MaxConcurrency)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return errors.Errorf("invalid log.level: %q", c.Log.Level)
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "text", "pretty":
	default:
		return errors.Errorf("invalid log.format: %q", c.Log.Format)
	}
	return nil
}

// NodeConfig maps the settings onto a full node
func (c Config) NodeConfig(logger *slog.Logger) node.Config {
	return node.Config{
		CurrentServer:  c.CurrentServer,
		NodeAddress:    c.NodeAddress,
		Difficulty:     c.Difficulty,
		PeerTimeout:    c.PeerTimeout,
		MaxConcurrency: c.MaxConcurrency,
		Logger:         logger,
	}
}
