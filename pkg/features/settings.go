package features

import "github.com/ilyakaznacheev/cleanenv"

// Settings holds environment-driven locator configuration.
type Settings struct {
	// ConfigName is the file name looked up during config discovery.
	ConfigName string `env:"FEATURES_CONFIG" env-default:"features.json"`
}

// LoadSettings reads locator settings from the environment.
func LoadSettings() (Settings, error) {
	var s Settings
	if err := cleanenv.ReadEnv(&s); err != nil {
		return Settings{}, err
	}
	return s, nil
}
