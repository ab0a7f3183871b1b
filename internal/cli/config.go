// Config loading for the shelf CLI.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/shelf/internal/paths"
	"github.com/mesh-intelligence/shelf/pkg/orm"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyDBPath      = "db_path"
	cfgKeyBusyTimeout = "busy_timeout_ms"

	defaultBusyTimeoutMS = 5000
)

// defaultConfigYAML is the content written to config.yaml on first run. The
// store path stays commented out so the --db flag and SHELF_DB_PATH keep
// their precedence.
const defaultConfigYAML = `# Shelf CLI configuration

# Store file path (overridable by the --db flag)
# db_path: shelf.db

# Write gate acquisition timeout in milliseconds
busy_timeout_ms: 5000
`

// loadConfig reads config.yaml from the resolved config directory using
// Viper, creating the directory and a default file on first run. A missing
// config.yaml is not an error.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBusyTimeout, defaultBusyTimeoutMS)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// ensureDefaultConfigFile creates a default config.yaml if the file does not
// exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

// storeConfig resolves the orm.Config from flags, config.yaml, and the
// environment. The --db flag wins over the config file.
func storeConfig() (orm.Config, error) {
	configDir, err := resolveConfigDir()
	if err != nil {
		return orm.Config{}, fmt.Errorf("resolve config dir: %w", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return orm.Config{}, err
	}

	path, err := paths.ResolveStorePath(flags.dbPath, v.GetString(cfgKeyDBPath))
	if err != nil {
		return orm.Config{}, fmt.Errorf("resolve store path: %w", err)
	}
	return orm.Config{
		Path:        path,
		BusyTimeout: time.Duration(v.GetInt(cfgKeyBusyTimeout)) * time.Millisecond,
	}, nil
}
