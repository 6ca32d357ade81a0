package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	chemviztls "github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/tls"
)

// DefaultServer is used when no server address is configured.
const DefaultServer = "http://localhost:8080"

// Settings is the resolved CLI configuration.
type Settings struct {
	Server  string        `mapstructure:"server"`
	Timeout time.Duration `mapstructure:"timeout"`
	CAFile  string        `mapstructure:"ca_file"`
	Cert    string        `mapstructure:"cert_file"`
	Key     string        `mapstructure:"key_file"`
}

// TLS returns the client TLS settings. TLS is enabled for https servers.
func (s Settings) TLS() chemviztls.Config {
	return chemviztls.Config{
		Enabled:  strings.HasPrefix(s.Server, "https://"),
		CertFile: s.Cert,
		KeyFile:  s.Key,
		CAFile:   s.CAFile,
	}
}

// loadSettings merges flags, CHEMVIZ_* environment variables, the config
// file and defaults, in that order of precedence. A missing default config
// file is not an error; a missing explicit one is.
func loadSettings(cfgFile string, flags *pflag.FlagSet) (Settings, error) {
	v := viper.New()
	v.SetEnvPrefix("CHEMVIZ")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("server", DefaultServer)
	v.SetDefault("timeout", 60*time.Second)

	for key, flag := range map[string]string{
		"server":    "server",
		"timeout":   "timeout",
		"ca_file":   "ca-file",
		"cert_file": "cert-file",
		"key_file":  "key-file",
	} {
		if f := flags.Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return Settings{}, fmt.Errorf("bind flag %s: %w", flag, err)
			}
		}
	}

	if cfgFile == "" {
		if home, err := os.UserHomeDir(); err == nil {
			if path := filepath.Join(home, ".chemvizctl.yaml"); fileExists(path) {
				cfgFile = path
			}
		}
	}
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode config: %w", err)
	}
	s.Server = strings.TrimRight(s.Server, "/")
	if s.Server == "" {
		return Settings{}, fmt.Errorf("server address is empty")
	}
	return s, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
