package types

// ProxyConf 描述代理池的来源与选择模式
type ProxyConf struct {
	Mode                string `ini:"mode"`   // every_request | once | custom (或 0 | 1 | 2)
	List                string `ini:"list"`   // 代理列表: 本地路径, file:// 或 http(s):// URL
	Custom              string `ini:"custom"` // custom 模式下的唯一代理
	FetchTimeoutSeconds int    `ini:"fetch_timeout_seconds"`
}

// LogConf contains logging specific configuration
type LogConf struct {
	Level  string `ini:"level"`
	Format string `ini:"format"` // console (默认) 或 json
}

// CrawlerConf 包含抓取客户端的配置
type CrawlerConf struct {
	UserAgent      string `ini:"user_agent"`
	TimeoutSeconds int    `ini:"timeout_seconds"`
	MaxRetries     int    `ini:"max_retries"`
	Parallelism    int    `ini:"parallelism"`
	Async          bool   `ini:"async"`
}

// Config 是统一配置结构体
type Config struct {
	ProxyConf   `ini:"proxy"`
	LogConf     `ini:"log"`
	CrawlerConf `ini:"crawler"`
}

// Default returns a Config with the values used when the ini file omits them.
func Default() *Config {
	return &Config{
		ProxyConf: ProxyConf{
			Mode:                "every_request",
			FetchTimeoutSeconds: 20,
		},
		LogConf: LogConf{
			Level:  "info",
			Format: "console",
		},
		CrawlerConf: CrawlerConf{
			TimeoutSeconds: 20,
			MaxRetries:     3,
			Parallelism:    1,
		},
	}
}
