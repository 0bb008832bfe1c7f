package tunnel

import "github.com/spf13/viper"

const (
	DefaultMinSpeedAtTunnelEntrance    = 5.0  // m/s
	DefaultMinDistanceToTunnelEntrance = 15.0 // meter

	// exitFixCount is the number of qualified fixes that confirm a tunnel exit.
	exitFixCount = 3
)

type Config struct {
	// MinSpeedAtTunnelEntrance. at or above this speed (m/s) a fix near a tunnel entrance starts the simulation.
	MinSpeedAtTunnelEntrance float64 `mapstructure:"min_speed_at_entrance"`
	// MinDistanceToTunnelEntrance. the user is near a tunnel entrance below this distance (meter).
	MinDistanceToTunnelEntrance float64 `mapstructure:"min_distance_to_entrance"`
}

func DefaultConfig() Config {
	return Config{
		MinSpeedAtTunnelEntrance:    DefaultMinSpeedAtTunnelEntrance,
		MinDistanceToTunnelEntrance: DefaultMinDistanceToTunnelEntrance,
	}
}

// ConfigFromViper reads the tunnel.* keys.
func ConfigFromViper() Config {
	return Config{
		MinSpeedAtTunnelEntrance:    viper.GetFloat64("tunnel.min_speed_at_entrance"),
		MinDistanceToTunnelEntrance: viper.GetFloat64("tunnel.min_distance_to_entrance"),
	}
}
