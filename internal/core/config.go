package core

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/RecoveryAshes/ResumeRadar/internal/models"
	"github.com/spf13/viper"
)

// Config 应用程序配置
// 启动时构造一次,之后不可变,显式传入各组件,不使用全局环境读取
type Config struct {
	Queue   QueueConfig   `mapstructure:"queue"`
	Browser BrowserConfig `mapstructure:"browser"`
	Scrape  ScrapeConfig  `mapstructure:"scrape"`
	Worker  WorkerConfig  `mapstructure:"worker"`
	Logging LoggingConfig `mapstructure:"logging"`
	Output  OutputConfig  `mapstructure:"output"`
}

// QueueConfig 任务队列配置
type QueueConfig struct {
	BaseURL        string `mapstructure:"base_url"`        // 队列服务根地址(必填)
	WorkerID       string `mapstructure:"worker_id"`       // Worker标识,空则自动生成
	TimeoutSeconds int    `mapstructure:"timeout_seconds"` // RPC超时
}

// BrowserConfig 浏览器调试端点配置
type BrowserConfig struct {
	DebugHost string `mapstructure:"debug_host"`
	DebugPort int    `mapstructure:"debug_port"`
}

// ScrapeConfig 采集目标配置
type ScrapeConfig struct {
	SearchBaseURL string `mapstructure:"search_base_url"` // 搜索页地址,空则使用内置默认
}

// WorkerConfig Worker循环配置
type WorkerConfig struct {
	PollSeconds    int `mapstructure:"poll_seconds"`    // 空闲轮询间隔
	BackoffSeconds int `mapstructure:"backoff_seconds"` // 出错退避
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	BaseDir   string `mapstructure:"base_dir"`
	SampleDir string `mapstructure:"sample_dir"`
}

// LoadConfig 加载配置文件
// 环境变量 CONVEX_URL / WORKER_ID 覆盖对应配置项
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// 设置配置文件
	if configPath != "" {
		// 使用指定的配置文件
		v.SetConfigFile(configPath)
	} else {
		// 搜索默认位置
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// 添加配置搜索路径
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")

		// 用户主目录
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".resumeradar"))
		}
	}

	// 设置默认值
	setDefaults(v)

	// 环境变量绑定(部署环境下常用)
	v.BindEnv("queue.base_url", "CONVEX_URL")
	v.BindEnv("queue.worker_id", "WORKER_ID")
	v.BindEnv("browser.debug_port", "CDP_PORT")

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		// 如果配置文件不存在,使用默认值
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在,使用默认值
	}

	// 解析配置
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	if config.Queue.WorkerID == "" {
		config.Queue.WorkerID = models.DefaultWorkerID()
	}

	return &config, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 队列配置默认值
	v.SetDefault("queue.timeout_seconds", 30)

	// 浏览器配置默认值
	v.SetDefault("browser.debug_host", "127.0.0.1")
	v.SetDefault("browser.debug_port", 9222)

	// Worker配置默认值
	v.SetDefault("worker.poll_seconds", 5)
	v.SetDefault("worker.backoff_seconds", 5)

	// 日志配置默认值
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)

	// 输出配置默认值
	v.SetDefault("output.base_dir", "output")
	v.SetDefault("output.sample_dir", "output/resumes/samples")
}

// Validate 校验启动必需的配置项
func (c *Config) Validate() error {
	if c.Queue.BaseURL == "" {
		return fmt.Errorf("队列服务地址未配置(设置CONVEX_URL环境变量或queue.base_url)")
	}
	if err := models.ValidateURL(c.Queue.BaseURL); err != nil {
		return fmt.Errorf("队列服务地址非法: %w", err)
	}
	if c.Browser.DebugPort < 1 || c.Browser.DebugPort > 65535 {
		return fmt.Errorf("调试端口非法: %d", c.Browser.DebugPort)
	}
	return nil
}

// QueueTimeout RPC超时
func (c *Config) QueueTimeout() time.Duration {
	return time.Duration(c.Queue.TimeoutSeconds) * time.Second
}

// PollInterval 空闲轮询间隔
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Worker.PollSeconds) * time.Second
}

// ErrorBackoff 出错退避时长
func (c *Config) ErrorBackoff() time.Duration {
	return time.Duration(c.Worker.BackoffSeconds) * time.Second
}
