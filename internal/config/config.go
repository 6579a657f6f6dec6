// Package config layers the storytree settings: defaults, an optional YAML
// config file, STORYTREE_* environment variables, then command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultFile is read from the working directory when no config path is given.
const DefaultFile = ".storytree.yaml"

// EnvPrefix prefixes every environment variable, e.g. STORYTREE_DB.
const EnvPrefix = "STORYTREE"

// Config holds the resolved settings.
type Config struct {
	DB            string `mapstructure:"db"`
	Format        string `mapstructure:"format"`
	Entry         string `mapstructure:"entry"`
	ModPrefix     string `mapstructure:"mod_prefix"`
	Out           string `mapstructure:"out"`
	DumpFormat    string `mapstructure:"dump_format"`
	ScriptsDir    string `mapstructure:"scripts_dir"`
	PythonTargets bool   `mapstructure:"python_targets"`
	Verbose       bool   `mapstructure:"verbose"`
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"db":             "db",
	"format":         "format",
	"entry":          "entry",
	"mod-prefix":     "mod_prefix",
	"out":            "out",
	"dump-format":    "dump_format",
	"scripts-dir":    "scripts_dir",
	"python-targets": "python_targets",
	"verbose":        "verbose",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db", "")
	v.SetDefault("format", "json")
	v.SetDefault("entry", "begingame")
	v.SetDefault("mod_prefix", "mods/")
	v.SetDefault("out", "")
	v.SetDefault("dump_format", "py")
	v.SetDefault("scripts_dir", "")
	v.SetDefault("python_targets", true)
	v.SetDefault("verbose", false)
}

// Load resolves the configuration. path names a config file that must
// exist; when empty, DefaultFile is used if present. flags may be nil.
// Only flags set on the command line override file and environment values.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("config: bind --%s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Format {
	case "json", "text":
	default:
		return fmt.Errorf("config: format must be json or text, got %q", c.Format)
	}
	switch c.DumpFormat {
	case "py", "json":
	default:
		return fmt.Errorf("config: dump_format must be py or json, got %q", c.DumpFormat)
	}
	if c.Entry == "" {
		return errors.New("config: entry label is empty")
	}
	return nil
}

// DumpPath returns Out, or game_tree.<ext> for the dump format when Out is
// unset.
func (c *Config) DumpPath() string {
	if c.Out != "" {
		return c.Out
	}
	return "game_tree." + c.DumpFormat
}
