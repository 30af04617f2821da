package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/RecoveryAshes/JournalCrawler/internal/models"
	"github.com/RecoveryAshes/JournalCrawler/internal/utils"
	"github.com/spf13/viper"
)

const (
	// DefaultConfigFile 默认站点配置文件路径
	DefaultConfigFile = "configs/site.yaml"

	// MaxConfigFileSize 配置文件最大大小 (1MB)
	MaxConfigFileSize = 1 * 1024 * 1024

	// EnvPrefix 环境变量前缀
	EnvPrefix = "JOURNALCRAWLER"
)

//go:embed site_template.yaml
var defaultSiteTemplate string

// SiteConfigLoader 站点配置加载器
// 负责加载请求头部和登录凭据
type SiteConfigLoader struct {
	configPath string
}

// NewSiteConfigLoader 创建站点配置加载器
func NewSiteConfigLoader(configPath string) *SiteConfigLoader {
	if configPath == "" {
		configPath = DefaultConfigFile
	}
	return &SiteConfigLoader{
		configPath: configPath,
	}
}

// Path 配置文件路径
func (l *SiteConfigLoader) Path() string {
	return l.configPath
}

// EnsureConfigExists 确保配置文件存在,如不存在则自动生成模板
func (l *SiteConfigLoader) EnsureConfigExists() error {
	if _, err := os.Stat(l.configPath); os.IsNotExist(err) {
		dir := filepath.Dir(l.configPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("无法创建配置目录 [%s]: %w", dir, err)
		}

		// 模板含凭据字段, 仅属主可读
		if err := os.WriteFile(l.configPath, []byte(defaultSiteTemplate), 0600); err != nil {
			return fmt.Errorf("无法生成配置文件 [%s]: %w", l.configPath, err)
		}
		utils.Infof("已生成站点配置模板: %s", l.configPath)
	}
	return nil
}

// ValidateFileSize 验证配置文件大小是否在限制内
func (l *SiteConfigLoader) ValidateFileSize() error {
	info, err := os.Stat(l.configPath)
	if err != nil {
		return fmt.Errorf("无法读取配置文件信息 [%s]: %w", l.configPath, err)
	}

	if info.Size() > MaxConfigFileSize {
		return &models.ConfigError{
			FilePath: l.configPath,
			Cause: fmt.Errorf("配置文件过大: %d 字节 (最大 %d 字节)",
				info.Size(), MaxConfigFileSize),
		}
	}

	return nil
}

// LoadConfig 加载站点配置
// 执行流程:
//  1. 确保配置文件存在 (不存在则自动创建)
//  2. 验证文件大小
//  3. 使用Viper解析YAML, 环境变量可覆盖凭据
//  4. 绑定到SiteConfig结构体
func (l *SiteConfigLoader) LoadConfig() (*models.SiteConfig, error) {
	if err := l.EnsureConfigExists(); err != nil {
		return nil, err
	}

	if err := l.ValidateFileSize(); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(l.configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("credentials.user", "")
	v.SetDefault("credentials.pass", "")

	if err := v.ReadInConfig(); err != nil {
		// 配置文件被其他进程锁定时降级为空配置
		if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK) {
			utils.Warnf("配置文件被锁定 [%s], 使用默认配置", l.configPath)
			return &models.SiteConfig{
				Headers: make(map[string]string),
			}, nil
		}

		return nil, &models.ConfigError{
			FilePath: l.configPath,
			Cause:    err,
		}
	}

	var config models.SiteConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, &models.ConfigError{
			FilePath: l.configPath,
			Cause:    fmt.Errorf("配置绑定失败: %w", err),
		}
	}

	if config.Headers == nil {
		config.Headers = make(map[string]string)
	}

	return &config, nil
}
