package models

import (
	"fmt"
	"net/http"
	"strings"
)

// SiteConfig 表示site.yaml配置文件的结构
// 包含请求头部和图书馆代理的登录凭据
type SiteConfig struct {
	// Headers 自定义HTTP头部 (如 "User-Agent")
	Headers map[string]string `mapstructure:"headers" yaml:"headers"`

	// Credentials 登录表单使用的账号
	Credentials Credentials `mapstructure:"credentials" yaml:"credentials"`
}

// Credentials 登录凭据, 仅由认证网关使用
type Credentials struct {
	User string `mapstructure:"user" yaml:"user"`
	Pass string `mapstructure:"pass" yaml:"pass"`
}

// Empty 凭据不完整, 无法用于登录
func (c Credentials) Empty() bool {
	return c.User == "" || c.Pass == ""
}

// String 脱敏输出, 避免密码进入日志
func (c Credentials) String() string {
	if c.Empty() {
		return "<none>"
	}
	return c.User + ":***"
}

// CliHeaders 表示命令行传递的头部列表
// 每个字符串格式为 "Name: Value"
type CliHeaders []string

// Parse 将字符串列表解析为 http.Header
// 返回解析后的头部和错误信息
func (ch CliHeaders) Parse() (http.Header, error) {
	result := make(http.Header)
	for i, s := range ch {
		name, value, err := parseHeaderString(s)
		if err != nil {
			return nil, fmt.Errorf("参数 --header 第%d项格式错误: %w", i+1, err)
		}
		result.Set(name, value)
	}
	return result, nil
}

// parseHeaderString 解析单个头部字符串 "Name: Value"
// 返回头部名称、值和错误信息
func parseHeaderString(s string) (name, value string, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("格式错误: 缺少冒号分隔符,应为 'Name: Value'")
	}

	name = strings.TrimSpace(parts[0])
	value = strings.TrimSpace(parts[1])

	if name == "" {
		return "", "", fmt.Errorf("头部名称不能为空")
	}

	return name, value, nil
}

// HeaderProvider 定义HTTP头部提供者接口
// 抓取器在每次请求前调用GetHeaders
type HeaderProvider interface {
	// GetHeaders 返回按优先级合并后的头部(默认 < 配置 < 命令行)
	GetHeaders() (http.Header, error)
}

// ValidationError 站点配置(请求头部或登录凭据)验证失败
type ValidationError struct {
	// Source 出错项的来源: 默认/站点配置/命令行
	Source string

	// Key 头部名称或凭据键 (如 "credentials.user")
	Key string

	// Field 出错的部分 ("name" 或 "value")
	Field string

	Reason     string
	Suggestion string
}

// Error 实现error接口
func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("站点配置验证失败 [%s]: %s", e.Key, e.Reason)
	if e.Source != "" {
		msg = fmt.Sprintf("站点配置验证失败 [%s, 来自%s]: %s", e.Key, e.Source, e.Reason)
	}
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (建议: %s)", e.Suggestion)
	}
	return msg
}

// ConfigError 配置文件错误
// 表示配置文件解析失败
type ConfigError struct {
	// FilePath 配置文件路径
	FilePath string

	// Cause 底层错误 (如viper.ConfigParseError)
	Cause error
}

// Error 实现error接口
func (e *ConfigError) Error() string {
	return fmt.Sprintf("配置文件错误 [%s]: %v", e.FilePath, e.Cause)
}

// Unwrap 支持errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Cause
}
