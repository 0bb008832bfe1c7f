package util

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// SetConfigDefaults registers the default value of every config key the service reads.
func SetConfigDefaults() {
	viper.SetDefault("tunnel.min_speed_at_entrance", 5.0)     // m/s
	viper.SetDefault("tunnel.min_distance_to_entrance", 15.0) // meter

	viper.SetDefault("location.max_horizontal_accuracy", 100.0) // meter
	viper.SetDefault("location.max_age", "0s")

	viper.SetDefault("simulation.tick_interval", "1s")
	viper.SetDefault("simulation.min_speed", 8.9) // ~20 mph
	viper.SetDefault("simulation.max_speed", 30.0)

	viper.SetDefault("route.max_snap_distance", 50.0) // meter

	viper.SetDefault("API_PORT", 6060)
	viper.SetDefault("WEBSOCKET_PORT", 6666)
	viper.SetDefault("WEBSOCKET_PROXY_PORT", 6767)
	viper.SetDefault("USE_RATE_LIMIT", true)
	viper.SetDefault("API_TIMEOUT", "30s")
	viper.SetDefault("JOURNAL_PATH", "./data/transitions.db")
	viper.SetDefault("RATE_LIMIT_RPS", 50.0)
	viper.SetDefault("RATE_LIMIT_BURST", 100)
}

// ReadConfig reads config.yaml from dir. A missing file is not an error, defaults and env apply.
func ReadConfig(dir string) error {
	SetConfigDefaults()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(dir)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	err := viper.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("fatal error config file: %w", err)
	}
	return nil
}

var watchOnce sync.Once

// WatchConfig reloads the config file on change and calls onChange after every reload.
func WatchConfig(log *zap.Logger, onChange func()) {
	watchOnce.Do(func() {
		viper.OnConfigChange(func(e fsnotify.Event) {
			log.Info("config file changed", zap.String("file", e.Name), zap.String("op", e.Op.String()))
			if onChange != nil {
				onChange()
			}
		})
		viper.WatchConfig()
	})
}
