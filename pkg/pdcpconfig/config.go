// Package pdcpconfig loads the bearer table a surrounding eNB/gNB task
// scheduler hands to the bearer registry at attach time: the set of
// per-bearer BearerConfig/SecurityConfig pairs, plus the ambient
// logging/telemetry/metrics settings every core in this corpus ships with.
//
// Configuration precedence, highest to lowest: CLI flags (left to the
// embedding binary), environment variables (PDCP_*), the config file, then
// the defaults below. This mirrors the teacher's own pkg/config precedence
// order.
package pdcpconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Table is the top-level configuration document: ambient settings plus the
// bearer table itself.
type Table struct {
	Logging   LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
	Metrics   MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
	Bearers   []BearerEntry  `mapstructure:"bearers" validate:"dive" yaml:"bearers"`
}

// LoggingConfig controls logging behavior, in the shape of the teacher's own
// LoggingConfig.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing for the
// write_sdu/write_pdu spans.
type TelemetryConfig struct {
	Enabled    bool    `mapstructure:"enabled" yaml:"enabled"`
	Endpoint   string  `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure   bool    `mapstructure:"insecure" yaml:"insecure"`
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`
}

// MetricsConfig toggles the pdcpmetrics facade.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// BearerEntry is one row of the bearer table: everything NewEntity needs to
// construct a PDCPEntity, in a config-file-friendly (string-keyed) shape.
type BearerEntry struct {
	BearerID             uint32        `mapstructure:"bearer_id" validate:"required" yaml:"bearer_id"`
	RAT                  string        `mapstructure:"rat" validate:"required,oneof=LTE NR lte nr" yaml:"rat"`
	Type                 string        `mapstructure:"type" validate:"required,oneof=SRB DRB srb drb" yaml:"type"`
	SNLength             int           `mapstructure:"sn_length" validate:"oneof=5 7 12 15 18" yaml:"sn_length"`
	TXDirection          string        `mapstructure:"tx_direction" validate:"required,oneof=uplink downlink" yaml:"tx_direction"`
	DiscardTimer         time.Duration `mapstructure:"discard_timer" yaml:"discard_timer"`
	ReorderTimer         time.Duration `mapstructure:"reorder_timer" yaml:"reorder_timer"`
	StatusReportRequired bool          `mapstructure:"status_report_required" yaml:"status_report_required"`
	UndeliveredLimit     int           `mapstructure:"undelivered_limit" yaml:"undelivered_limit,omitempty"`

	Security SecurityEntry `mapstructure:"security" yaml:"security"`
}

// SecurityEntry is a config-file-friendly SecurityConfig: keys are supplied
// as hex strings rather than raw bytes.
type SecurityEntry struct {
	IntegrityAlgorithm string `mapstructure:"integrity_algorithm" validate:"omitempty,oneof=EIA0 EIA1 EIA2 EIA3" yaml:"integrity_algorithm"`
	IntegrityKeyHex    string `mapstructure:"integrity_key" validate:"omitempty,hexadecimal" yaml:"integrity_key"`
	IntegrityEnabled   string `mapstructure:"integrity_enabled" validate:"omitempty,oneof=none tx rx both" yaml:"integrity_enabled"`

	CipherAlgorithm string `mapstructure:"cipher_algorithm" validate:"omitempty,oneof=EEA0 EEA1 EEA2 EEA3" yaml:"cipher_algorithm"`
	CipherKeyHex    string `mapstructure:"cipher_key" validate:"omitempty,hexadecimal" yaml:"cipher_key"`
	CipherEnabled   string `mapstructure:"cipher_enabled" validate:"omitempty,oneof=none tx rx both" yaml:"cipher_enabled"`
}

// Load reads the bearer table from configPath (environment variables under
// the PDCP_ prefix and the config file, with environment taking precedence),
// applies defaults, and validates the result. An empty configPath yields an
// empty, valid Table (no bearers configured) rather than an error, matching
// the teacher's Load behaviour for "no config file present."
func Load(configPath string) (*Table, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	var table Table
	if found {
		if err := v.Unmarshal(&table, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(durationDecodeHook()))); err != nil {
			return nil, fmt.Errorf("pdcpconfig: unmarshal: %w", err)
		}
	}

	ApplyDefaults(&table)

	if err := Validate(&table); err != nil {
		return nil, fmt.Errorf("pdcpconfig: validation failed: %w", err)
	}

	return &table, nil
}

// Save writes table to path in YAML form, respecting the yaml struct tags
// above so a loaded-then-saved table round-trips.
func Save(table *Table, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("pdcpconfig: create directory: %w", err)
		}
	}
	data, err := yaml.Marshal(table)
	if err != nil {
		return fmt.Errorf("pdcpconfig: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("pdcpconfig: write file: %w", err)
	}
	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("PDCP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	}
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if v.ConfigFileUsed() == "" {
		return false, nil
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("pdcpconfig: read config file: %w", err)
	}
	return true, nil
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch d := data.(type) {
		case string:
			return time.ParseDuration(d)
		case int:
			return time.Duration(d), nil
		case int64:
			return time.Duration(d), nil
		case float64:
			return time.Duration(d), nil
		default:
			return data, nil
		}
	}
}

var structValidator = validator.New()

// Validate runs go-playground/validator over the struct tags above, the
// same mechanism the teacher's Config struct is tagged for (even though the
// teacher never wires validator.New() itself — this package is where the
// corpus's validator dependency gets a live caller).
func Validate(table *Table) error {
	return structValidator.Struct(table)
}

// ApplyDefaults fills unset fields with the same defaults the teacher's
// pkg/config applies for the fields this package shares with it (logging);
// PDCP-specific fields (SN length) default to the values spec.md itself
// treats as defaults. UndeliveredLimit is left at 0, which pdcp.BearerConfig
// resolves to the SN window size.
func ApplyDefaults(table *Table) {
	if table.Logging.Level == "" {
		table.Logging.Level = "INFO"
	}
	table.Logging.Level = strings.ToUpper(table.Logging.Level)
	if table.Logging.Format == "" {
		table.Logging.Format = "text"
	}
	if table.Logging.Output == "" {
		table.Logging.Output = "stdout"
	}

	if table.Telemetry.Endpoint == "" {
		table.Telemetry.Endpoint = "localhost:4317"
	}
	if table.Telemetry.SampleRate == 0 {
		table.Telemetry.SampleRate = 1.0
	}

	for i := range table.Bearers {
		b := &table.Bearers[i]
		if b.SNLength == 0 {
			b.SNLength = 12
		}
		if b.Security.IntegrityEnabled == "" {
			b.Security.IntegrityEnabled = "none"
		}
		if b.Security.CipherEnabled == "" {
			b.Security.CipherEnabled = "none"
		}
	}
}
