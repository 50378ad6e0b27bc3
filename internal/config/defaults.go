package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultBindAddr            = "127.0.0.1"
	DefaultPort                = 6379
	DefaultReadBufferSize      = 10240
	DefaultMaxRequestSize      = 64 << 20
	DefaultMaintenanceInterval = 3000 * time.Millisecond
	DefaultBufferPoolSize      = 1 << 30
	DefaultMetricsAddr         = "127.0.0.1:9121"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.bind_addr", DefaultBindAddr)
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.read_buffer_size", DefaultReadBufferSize)
	v.SetDefault("server.max_request_size", DefaultMaxRequestSize)
	v.SetDefault("server.maintenance_interval", DefaultMaintenanceInterval)
	v.SetDefault("server.tcp_keepalive", time.Duration(0))

	v.SetDefault("storage.engine", EngineMemory)
	v.SetDefault("storage.dir", "./data")
	v.SetDefault("storage.buffer_pool_size", DefaultBufferPoolSize)
	v.SetDefault("storage.cache_entries", 0)
	v.SetDefault("storage.append_log", false)
	v.SetDefault("storage.eviction", EvictionNone)

	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size", 500)
	v.SetDefault("logging.max_age", 30)
	v.SetDefault("logging.max_backups", 10)
	v.SetDefault("logging.compress", true)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", DefaultMetricsAddr)
}

// Default 返回全部使用默认值的配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BindAddr:            DefaultBindAddr,
			Port:                DefaultPort,
			ReadBufferSize:      DefaultReadBufferSize,
			MaxRequestSize:      DefaultMaxRequestSize,
			MaintenanceInterval: DefaultMaintenanceInterval,
		},
		Storage: StorageConfig{
			Engine:         EngineMemory,
			Dir:            "./data",
			BufferPoolSize: DefaultBufferPoolSize,
			Eviction:       EvictionNone,
		},
		Logging: LoggingConfig{
			Level:      "INFO",
			MaxSize:    500,
			MaxAge:     30,
			MaxBackups: 10,
			Compress:   true,
		},
		Metrics: MetricsConfig{
			Addr: DefaultMetricsAddr,
		},
	}
}
