// Package config resolves linkcap settings from command-line flags and
// LINKCAP_* environment variables. No configuration file is read.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/signalsfoundry/linkcap/internal/logging"
	"github.com/signalsfoundry/linkcap/internal/observability"
)

// EnvPrefix is prepended to every environment key, e.g. LINKCAP_LOG_LEVEL.
const EnvPrefix = "LINKCAP"

// Keys, and the flag that binds to each (if any).
const (
	KeyLogLevel   = "log.level"
	KeyLogFormat  = "log.format"
	KeyLogBackend = "log.backend"

	KeyGRPCAddr    = "serve.grpc_addr"
	KeyMetricsAddr = "serve.metrics_addr"

	KeyTracingEnabled     = "tracing.enabled"
	KeyTracingExporter    = "tracing.exporter"
	KeyTracingEndpoint    = "tracing.endpoint"
	KeyTracingSampleRatio = "tracing.sample_ratio"
	KeyTracingService     = "tracing.service_name"
)

var flagKeys = map[string]string{
	"log-level":    KeyLogLevel,
	"log-format":   KeyLogFormat,
	"log-backend":  KeyLogBackend,
	"grpc-addr":    KeyGRPCAddr,
	"metrics-addr": KeyMetricsAddr,
}

// Config is the resolved application configuration.
type Config struct {
	Log     logging.Config
	Serve   ServeConfig
	Tracing observability.TracingConfig
}

// ServeConfig holds listener addresses for serve mode. An empty
// MetricsAddr disables the /metrics endpoint.
type ServeConfig struct {
	GRPCAddr    string
	MetricsAddr string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyLogLevel, "error")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyLogBackend, logging.BackendSlog)

	v.SetDefault(KeyGRPCAddr, ":50051")
	v.SetDefault(KeyMetricsAddr, ":9090")

	v.SetDefault(KeyTracingEnabled, false)
	v.SetDefault(KeyTracingExporter, "stdout")
	v.SetDefault(KeyTracingEndpoint, "")
	v.SetDefault(KeyTracingSampleRatio, 1.0)
	v.SetDefault(KeyTracingService, "linkcap")
}

// New returns a viper instance wired for LINKCAP_* environment lookups
// and bound to any known flags present in fs. fs may be nil.
func New(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	// LINKCAP_SERVE_METRICS_ADDR= disables /metrics.
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()
	setDefaults(v)

	if fs == nil {
		return v, nil
	}
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, fmt.Errorf("bind flag %q: %w", name, err)
		}
	}
	return v, nil
}

// Load resolves the configuration with precedence flag > env > default.
func Load(fs *pflag.FlagSet) (Config, error) {
	v, err := New(fs)
	if err != nil {
		return Config{}, err
	}
	return FromViper(v), nil
}

// FromViper extracts a typed Config from an already populated viper.
func FromViper(v *viper.Viper) Config {
	ratio := v.GetFloat64(KeyTracingSampleRatio)
	// NaN fails this comparison too.
	if !(ratio >= 0 && ratio <= 1) {
		ratio = 1.0
	}

	return Config{
		Log: logging.Config{
			Level:   v.GetString(KeyLogLevel),
			Format:  v.GetString(KeyLogFormat),
			Backend: v.GetString(KeyLogBackend),
		},
		Serve: ServeConfig{
			GRPCAddr:    v.GetString(KeyGRPCAddr),
			MetricsAddr: v.GetString(KeyMetricsAddr),
		},
		Tracing: observability.TracingConfig{
			Enabled:     v.GetBool(KeyTracingEnabled),
			ServiceName: v.GetString(KeyTracingService),
			Exporter:    strings.ToLower(v.GetString(KeyTracingExporter)),
			Endpoint:    v.GetString(KeyTracingEndpoint),
			SampleRatio: ratio,
		},
	}
}
