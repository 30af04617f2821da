package core

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/RecoveryAshes/JournalCrawler/internal/models"
	"github.com/RecoveryAshes/JournalCrawler/internal/utils"
	"github.com/spf13/viper"
)

// Config 应用程序配置
type Config struct {
	Crawl       models.CrawlConfig `mapstructure:"crawl"`
	Logging     LoggingConfig      `mapstructure:"logging"`
	Storage     StorageConfig      `mapstructure:"storage"`
	Session     SessionConfig      `mapstructure:"session"`
	Diagnostics DiagnosticsConfig  `mapstructure:"diagnostics"`
	Resource    ResourceConfig     `mapstructure:"resource"`
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

// StorageConfig 文件存储配置
type StorageConfig struct {
	Root    string `mapstructure:"root"`    // 下载文件根目录
	Catalog string `mapstructure:"catalog"` // sqlite目录文件, 为空时不记录
	Reports string `mapstructure:"reports"` // 运行报告目录
}

// SessionConfig 会话持久化配置
type SessionConfig struct {
	CookieFile string `mapstructure:"cookie_file"`
}

// DiagnosticsConfig 诊断日志配置
type DiagnosticsConfig struct {
	Dir string `mapstructure:"dir"`
}

// ResourceConfig 资源探测配置, 用于自动确定worker数量
type ResourceConfig struct {
	SafetyReserveMB  int `mapstructure:"safety_reserve_mb"`
	CPULoadThreshold int `mapstructure:"cpu_load_threshold"`
	MaxWorkers       int `mapstructure:"max_workers"`
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath("./configs")
		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".journalcrawler"))
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// 配置文件不存在时使用默认值
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	return &config, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 遍历配置默认值
	v.SetDefault("crawl.variant", string(models.VariantPortal))
	v.SetDefault("crawl.mode", string(models.ModeStatic))
	v.SetDefault("crawl.min_pause", 1)
	v.SetDefault("crawl.max_pause", 3)
	v.SetDefault("crawl.use_auth", true)
	v.SetDefault("crawl.concurrency", 0)
	v.SetDefault("crawl.headless", true)
	v.SetDefault("crawl.wait_time", 2)
	v.SetDefault("crawl.request_timeout", 60)
	v.SetDefault("crawl.insecure_tls", false)

	// 日志配置默认值
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)

	// 存储配置默认值
	v.SetDefault("storage.root", "downloads")
	v.SetDefault("storage.catalog", "downloads/catalog.db")
	v.SetDefault("storage.reports", "output")

	v.SetDefault("session.cookie_file", "cookies.json")
	v.SetDefault("diagnostics.dir", "diagnostics")

	v.SetDefault("resource.safety_reserve_mb", 512)
	v.SetDefault("resource.cpu_load_threshold", 90)
	v.SetDefault("resource.max_workers", 8)
}

// GetCrawlConfig 从配置中提取遍历配置
func (c *Config) GetCrawlConfig() models.CrawlConfig {
	return c.Crawl
}

// LogConfig 转换为日志初始化参数
func (c *Config) LogConfig() utils.LogConfig {
	return utils.LogConfig{
		Level:      c.Logging.Level,
		LogDir:     c.Logging.LogDir,
		MaxSize:    c.Logging.Rotation.MaxSize,
		MaxBackups: c.Logging.Rotation.MaxBackups,
		MaxAge:     c.Logging.Rotation.MaxAge,
		Compress:   c.Logging.Rotation.Compress,
	}
}

// CLIOverrides 命令行参数, 零值表示未设置
type CLIOverrides struct {
	Variant     string
	Mode        string
	Limits      map[models.Level]int
	MinPause    int // -1 未设置
	MaxPause    int // -1 未设置
	NoAuth      bool
	Concurrency int
	OutputDir   string
	Headless    *bool
}

// MergeCLIFlags 合并命令行参数到配置, 命令行优先
func (c *Config) MergeCLIFlags(o CLIOverrides) {
	if o.Variant != "" {
		c.Crawl.Variant = models.Variant(o.Variant)
	}
	if o.Mode != "" {
		c.Crawl.Mode = models.CrawlMode(o.Mode)
	}
	for level, n := range o.Limits {
		if n > 0 {
			c.Crawl.SetLimit(level, n)
		}
	}
	if o.MinPause >= 0 {
		c.Crawl.MinPauseSeconds = o.MinPause
	}
	if o.MaxPause >= 0 {
		c.Crawl.MaxPauseSeconds = o.MaxPause
	}
	if o.NoAuth {
		c.Crawl.UseAuth = false
	}
	if o.Concurrency > 0 {
		c.Crawl.Concurrency = o.Concurrency
	}
	if o.OutputDir != "" {
		c.Storage.Root = o.OutputDir
	}
	if o.Headless != nil {
		c.Crawl.Headless = *o.Headless
	}
}
