package config

const (
	defaultOutputDir      = "~/.local/share/folio/output"
	defaultLogDir         = "~/.local/share/folio/logs"
	defaultServiceScheme  = "http"
	defaultServiceHost    = "127.0.0.1"
	defaultServicePort    = 8770
	defaultPathPrefix     = "/api/v1"
	defaultModel          = "standard"
	defaultTimeoutSeconds = 120
	defaultPollInterval   = 5
	defaultMergeGroup     = "pages"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Service: Service{
			Scheme:         defaultServiceScheme,
			Host:           defaultServiceHost,
			Port:           defaultServicePort,
			PathPrefix:     defaultPathPrefix,
			Model:          defaultModel,
			TimeoutSeconds: defaultTimeoutSeconds,
		},
		Jobs: Jobs{
			PollInterval: defaultPollInterval,
		},
		Merge: Merge{
			ChunkGroup: defaultMergeGroup,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
