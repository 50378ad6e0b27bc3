package logger

type Config struct {
	Level      string
	FileName   string
	MaxSize    int
	MaxAge     int
	MaxBackups int
	Compress   bool
}

func DefaultConfig() *Config {
	return &Config{
		Level:      "INFO",
		MaxSize:    500,
		MaxAge:     30,
		MaxBackups: 10,
		Compress:   true,
	}
}
