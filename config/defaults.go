package config

import "time"

// DefaultConfig returns the configuration used when no file or env
// overrides are present. Every field a component reads has a workable
// default; credentials default to empty and must come from env.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        8080,
			MetricsPort:     9090,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Sync: SyncConfig{
			ReconnectAttempts: 3,
			ReconnectDelay:    2 * time.Second,
			SendBuffer:        256,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			DB:       0,
			PoolSize: 10,
		},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			Name:            "canvasflow.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Dispatch: DispatchConfig{
			DefaultVideoDuration: 5,
			DefaultVideoModel:    "kling-v1-6",
			WaitInterval:         time.Second,
			WaitTimeout:          2 * time.Minute,
			RepairConcurrency:    4,
		},
		Agent: AgentConfig{
			Model:       "gemini-2.0-flash-exp",
			MaxTurns:    24,
			Temperature: 0.7,
			Timeout:     10 * time.Minute,
		},
		Interrupt: InterruptConfig{
			CacheWindow: 500 * time.Millisecond,
			SessionTTL:  24 * time.Hour,
		},
		Providers: ProvidersConfig{
			Gemini: GeminiConfig{
				Model:   "gemini-2.0-flash-exp",
				Timeout: 2 * time.Minute,
			},
			Kling: KlingConfig{
				Model:   "kling-v1-6",
				Timeout: time.Minute,
			},
			KIE: KIEConfig{
				Model:   "runway-gen3",
				Timeout: time.Minute,
			},
		},
		Log: LogConfig{
			Level:       "info",
			Format:      "json",
			OutputPaths: []string{"stdout"},
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "canvasflow",
		},
	}
}
