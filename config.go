package mesh

import "github.com/goliatone/go-mesh/internal/runtimeconfig"

var (
	ErrLoggingProviderUnknown = runtimeconfig.ErrLoggingProviderUnknown
	ErrLoggingLevelInvalid    = runtimeconfig.ErrLoggingLevelInvalid
	ErrLoggingFormatInvalid   = runtimeconfig.ErrLoggingFormatInvalid
	ErrDefaultLanguageMissing = runtimeconfig.ErrDefaultLanguageMissing
)

type (
	Config          = runtimeconfig.Config
	UserConfig      = runtimeconfig.UserConfig
	LoggingConfig   = runtimeconfig.LoggingConfig
	ClientConfig    = runtimeconfig.ClientConfig
	BreakerConfig   = runtimeconfig.BreakerConfig
	RenderingConfig = runtimeconfig.RenderingConfig
	SessionConfig   = runtimeconfig.SessionConfig
	HTTPConfig      = runtimeconfig.HTTPConfig
)

func DefaultConfig() Config {
	return runtimeconfig.DefaultConfig()
}

// LoadConfig reads a YAML config file on top of DefaultConfig. A missing file
// yields the defaults.
func LoadConfig(path string) (Config, error) {
	return runtimeconfig.LoadOrDefault(path)
}
