// Package config supplies the client configuration surface: server
// address, identity, key directory, protocol version, and I/O timeout.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/numscull/go-numscull/lib/util/logger"
)

var (
	// CfgFile overrides the config file location when set by the CLI.
	CfgFile string
	log     = logger.GetNumscullLogger()
)

const NumscullBaseDir = ".numscull"

// DefaultVersion is the protocol version string sent in control/init.
const DefaultVersion = "0.2.4"

// ClientConfig is everything the protocol core consumes.
type ClientConfig struct {
	Host      string
	Port      int
	Identity  string
	ConfigDir string
	Version   string
	Timeout   time.Duration
}

// InitConfig wires viper to the config file, defaults, and NUMSCULL_*
// environment variables.
func InitConfig() {
	if CfgFile != "" {
		viper.SetConfigFile(CfgFile)
	} else {
		viper.AddConfigPath(BuildNumscullDirPath())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	setDefaults()

	viper.SetEnvPrefix("NUMSCULL")
	viper.AutomaticEnv()

	handleConfigFile()
}

func setDefaults() {
	viper.SetDefault("host", "127.0.0.1")
	viper.SetDefault("port", 5111)
	viper.SetDefault("identity", "")
	viper.SetDefault("config_dir", BuildNumscullDirPath())
	viper.SetDefault("version", DefaultVersion)
	viper.SetDefault("timeout", 30*time.Second)
}

// NewClientConfigFromViper builds a ClientConfig from current viper
// settings. Preferred over any global config state.
func NewClientConfigFromViper() *ClientConfig {
	return &ClientConfig{
		Host:      viper.GetString("host"),
		Port:      viper.GetInt("port"),
		Identity:  viper.GetString("identity"),
		ConfigDir: viper.GetString("config_dir"),
		Version:   viper.GetString("version"),
		Timeout:   viper.GetDuration("timeout"),
	}
}

func handleConfigFile() {
	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); notFound {
			log.Debug("no config file found, using defaults")
			return
		}
		log.Warnf("error reading config file: %s", err)
	}
}

// CreateDefaultConfig writes the current settings out as a config.yaml
// under dir, creating the directory if needed.
func CreateDefaultConfig(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, "config.yaml")
	if err := viper.WriteConfigAs(path); err != nil {
		return err
	}
	log.Debugf("created default configuration at: %s", path)
	return nil
}

// BuildNumscullDirPath returns $HOME/.numscull.
func BuildNumscullDirPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		log.WithError(err).Warn("could not determine home directory")
		return NumscullBaseDir
	}
	return filepath.Join(home, NumscullBaseDir)
}
