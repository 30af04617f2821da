package models

import (
	"fmt"
	"sort"
	"time"
)

// CrawlMode 抓取方式
type CrawlMode string

const (
	ModeStatic  CrawlMode = "static"  // colly HTTP抓取
	ModeDynamic CrawlMode = "dynamic" // rod浏览器渲染
)

// Variant 站点变体
type Variant string

const (
	VariantPortal           Variant = "portal"
	VariantTandF            Variant = "tandf"
	VariantWiley            Variant = "wiley"
	VariantPortalDiscipline Variant = "portal-discipline"
	VariantTandFDiscipline  Variant = "tandf-discipline"
	VariantWileyDiscipline  Variant = "wiley-discipline"
)

// Variants 所有支持的变体
func Variants() []Variant {
	return []Variant{
		VariantPortal, VariantTandF, VariantWiley,
		VariantPortalDiscipline, VariantTandFDiscipline, VariantWileyDiscipline,
	}
}

// IsDiscipline 是否为学科元数据变体
func (v Variant) IsDiscipline() bool {
	switch v {
	case VariantPortalDiscipline, VariantTandFDiscipline, VariantWileyDiscipline:
		return true
	}
	return false
}

// Valid 是否为已知变体
func (v Variant) Valid() bool {
	for _, known := range Variants() {
		if v == known {
			return true
		}
	}
	return false
}

// TaskStats 运行统计
type TaskStats struct {
	Seeds          int     `json:"seeds"`           // 种子数
	FailedBranches int     `json:"failed_branches"` // 中止的分支数
	Fetches        int     `json:"fetches"`         // 页面请求数
	Records        int     `json:"records"`         // 产出记录数
	Journals       int     `json:"journals"`        // 期刊元数据条数
	StoredFiles    int     `json:"stored_files"`    // 保存文件数
	FailedFiles    int     `json:"failed_files"`    // 下载失败数
	Diagnostics    int     `json:"diagnostics"`     // 诊断日志条数
	TotalSize      int64   `json:"total_size"`      // 总大小(字节)
	Duration       float64 `json:"duration"`        // 总耗时(秒)
}

// CrawlConfig 遍历配置
type CrawlConfig struct {
	Variant Variant   `json:"variant" mapstructure:"variant"`
	Mode    CrawlMode `json:"mode" mapstructure:"mode"`

	// 每层最多访问的子节点数, 键为层级名(volume/issue/...), 缺省或0表示不限
	Limits          map[string]int `json:"limits" mapstructure:"limits"`
	MinPauseSeconds int            `json:"min_pause" mapstructure:"min_pause"`
	MaxPauseSeconds int            `json:"max_pause" mapstructure:"max_pause"`
	UseAuth         bool           `json:"use_auth" mapstructure:"use_auth"`

	Concurrency    int  `json:"concurrency" mapstructure:"concurrency"`         // 并发分支数, 0=按资源自动
	Headless       bool `json:"headless" mapstructure:"headless"`               // 无头浏览器
	WaitTime       int  `json:"wait_time" mapstructure:"wait_time"`             // 浏览器页面加载后额外等待(秒)
	RequestTimeout int  `json:"request_timeout" mapstructure:"request_timeout"` // 单次请求超时(秒)
	InsecureTLS    bool `json:"insecure_tls" mapstructure:"insecure_tls"`       // 跳过证书校验(代理门户常用自签名证书)
}

// Limit 返回某层级的上限
func (c *CrawlConfig) Limit(level Level) (int, bool) {
	n, ok := c.Limits[level.String()]
	if !ok || n <= 0 {
		return 0, false
	}
	return n, true
}

// SetLimit 设置某层级的上限, n<=0时取消限制
func (c *CrawlConfig) SetLimit(level Level, n int) {
	if c.Limits == nil {
		c.Limits = make(map[string]int)
	}
	if n <= 0 {
		delete(c.Limits, level.String())
		return
	}
	c.Limits[level.String()] = n
}

// PauseRange 返回停顿区间
func (c *CrawlConfig) PauseRange() (time.Duration, time.Duration) {
	return time.Duration(c.MinPauseSeconds) * time.Second, time.Duration(c.MaxPauseSeconds) * time.Second
}

// Validate 验证配置
func (c *CrawlConfig) Validate() error {
	if !c.Variant.Valid() {
		return fmt.Errorf("无效的站点变体: %q", c.Variant)
	}
	if c.Mode != ModeStatic && c.Mode != ModeDynamic {
		return fmt.Errorf("无效的抓取模式: %q (有效值: static, dynamic)", c.Mode)
	}
	if c.MinPauseSeconds < 0 || c.MaxPauseSeconds > 600 {
		return fmt.Errorf("停顿时间必须在0-600秒之间")
	}
	if c.MinPauseSeconds > c.MaxPauseSeconds {
		return fmt.Errorf("最小停顿(%d)不能大于最大停顿(%d)", c.MinPauseSeconds, c.MaxPauseSeconds)
	}
	if c.Concurrency < 0 || c.Concurrency > 64 {
		return fmt.Errorf("并发数必须在0-64之间")
	}
	if c.WaitTime < 0 || c.WaitTime > 60 {
		return fmt.Errorf("等待时间必须在0-60秒之间")
	}

	names := make([]string, 0, len(c.Limits))
	for name := range c.Limits {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := ParseLevel(name); !ok {
			return fmt.Errorf("未知的层级上限: %q", name)
		}
		if c.Limits[name] < 0 {
			return fmt.Errorf("层级上限不能为负数: %s=%d", name, c.Limits[name])
		}
	}
	return nil
}
