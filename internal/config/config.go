// Package config 负责加载服务端配置: 默认值 <- YAML 文件 <- NESSDB_* 环境变量
package config

import (
	"fmt"
	"net"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	EngineMemory  = "memory"
	EngineBadger  = "badger"
	EngineLevelDB = "leveldb"
)

// memory 引擎超出预算时的策略
const (
	EvictionNone   = "noeviction"
	EvictionRandom = "allkeys-random"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type ServerConfig struct {
	BindAddr string `mapstructure:"bind_addr" validate:"required,ip"`
	Port     int    `mapstructure:"port" validate:"min=0,max=65535"`

	// 每次可读事件最多读取的字节数
	ReadBufferSize ByteSize `mapstructure:"read_buffer_size" validate:"gt=0"`
	// 单个连接缓冲的未完成请求上限，超出后关闭连接
	MaxRequestSize ByteSize `mapstructure:"max_request_size" validate:"gtefield=ReadBufferSize"`

	MaintenanceInterval time.Duration `mapstructure:"maintenance_interval" validate:"gt=0"`
	TCPKeepAlive        time.Duration `mapstructure:"tcp_keepalive" validate:"gte=0"`
}

// Addr 返回 host:port
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.BindAddr, strconv.Itoa(c.Port))
}

type StorageConfig struct {
	Engine         string   `mapstructure:"engine" validate:"required,oneof=memory badger leveldb"`
	Dir            string   `mapstructure:"dir" validate:"required_unless=Engine memory"`
	BufferPoolSize ByteSize `mapstructure:"buffer_pool_size"`
	CacheEntries   int      `mapstructure:"cache_entries" validate:"gte=0"`
	AppendLog      bool     `mapstructure:"append_log"`
	// Eviction 只对 memory 引擎生效，决定超出 buffer_pool_size 时的行为
	Eviction string `mapstructure:"eviction" validate:"required,oneof=noeviction allkeys-random"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size" validate:"gte=0"`
	MaxAge     int    `mapstructure:"max_age" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	Compress   bool   `mapstructure:"compress"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr" validate:"required_if=Enabled true"`
}

// Load 读取配置文件。path 为空时只使用默认值和环境变量
func Load(path string) (*Config, error) {
	v := viper.New()
	setupViper(v, path)

	if path != "" {
		if err := v.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("configuration file not found: %s", path)
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Logging.Level = strings.ToUpper(cfg.Logging.Level)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func setupViper(v *viper.Viper, path string) {
	v.SetEnvPrefix("NESSDB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	}
}

func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return ParseByteSize(v)
		case int:
			return ByteSize(v), nil
		case int64:
			return ByteSize(v), nil
		case uint64:
			return ByteSize(v), nil
		case float64:
			return ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}
