package core

import (
	"net/http"
	"sync"

	"github.com/RecoveryAshes/JournalCrawler/internal/config"
	"github.com/RecoveryAshes/JournalCrawler/internal/models"
	"github.com/RecoveryAshes/JournalCrawler/internal/utils"
)

// DefaultUserAgent 出版商站点会拦截非浏览器UA
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/120.0.0.0 Safari/537.36"

// 头部来源, 出现在验证错误中
const (
	sourceDefault = "默认"
	sourceSite    = "站点配置"
	sourceCLI     = "命令行"
)

// headerLayer 一层头部, 后面的层覆盖前面的层
type headerLayer struct {
	source string
	header http.Header
}

// HeaderManager 站点配置: 请求头部与代理登录凭据
// 实现 models.HeaderProvider, 站点配置只在第一次使用时读取
type HeaderManager struct {
	loader    *config.SiteConfigLoader
	validator *utils.RequestValidator
	redactor  *utils.HeaderRedactor

	defaults headerLayer
	cli      headerLayer

	once        sync.Once
	loadErr     error
	site        headerLayer
	credentials models.Credentials
}

// NewHeaderManager configFile为空时使用默认路径; cliHeaders格式为 "Name: Value"
func NewHeaderManager(configFile string, cliHeaders []string) (*HeaderManager, error) {
	cli, err := models.CliHeaders(cliHeaders).Parse()
	if err != nil {
		return nil, err
	}

	return &HeaderManager{
		loader:    config.NewSiteConfigLoader(configFile),
		validator: utils.NewRequestValidator(),
		redactor:  utils.NewHeaderRedactor(),
		defaults: headerLayer{source: sourceDefault, header: http.Header{
			"User-Agent":      {DefaultUserAgent},
			"Accept":          {"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
			"Accept-Encoding": {"gzip, deflate, br"},
			"Accept-Language": {"en-US,en;q=0.9"},
		}},
		cli: headerLayer{source: sourceCLI, header: cli},
	}, nil
}

// LoadConfig 读取站点配置, 多个worker并发调用时只读一次
func (hm *HeaderManager) LoadConfig() error {
	hm.once.Do(func() {
		siteConfig, err := hm.loader.LoadConfig()
		if err != nil {
			utils.Errorf("加载站点配置失败: %v", err)
			hm.loadErr = err
			return
		}

		header := make(http.Header, len(siteConfig.Headers))
		for name, value := range siteConfig.Headers {
			header.Set(name, value)
		}
		hm.site = headerLayer{source: sourceSite + " " + hm.loader.Path(), header: header}
		hm.credentials = siteConfig.Credentials

		if len(header) > 0 {
			utils.Debugf("站点配置头部: %v", hm.redactor.Redact(header))
		}
		if !hm.credentials.Empty() {
			utils.Debugf("已加载登录凭据: %s", hm.credentials)
		}
	})
	return hm.loadErr
}

func (hm *HeaderManager) layers() []headerLayer {
	return []headerLayer{hm.defaults, hm.site, hm.cli}
}

// Validate 校验所有层的头部以及登录凭据
func (hm *HeaderManager) Validate() error {
	for _, layer := range hm.layers() {
		if err := hm.validator.ValidateHeaders(layer.source, layer.header); err != nil {
			return err
		}
	}
	if err := hm.validator.ValidateCredentials(hm.site.source, hm.credentials); err != nil {
		return err
	}
	utils.Debugf("站点配置验证通过")
	return nil
}

// GetMergedHeaders 默认 < 站点配置 < 命令行
func (hm *HeaderManager) GetMergedHeaders() http.Header {
	result := make(http.Header)
	for _, layer := range hm.layers() {
		for name, values := range layer.header {
			result[name] = values
		}
	}
	return result
}

// GetSafeHeaders 脱敏后的合并头部, 用于日志
func (hm *HeaderManager) GetSafeHeaders() map[string]string {
	return hm.redactor.Redact(hm.GetMergedHeaders())
}

// GetHeaders 实现 HeaderProvider
func (hm *HeaderManager) GetHeaders() (http.Header, error) {
	if err := hm.LoadConfig(); err != nil {
		return nil, err
	}
	if err := hm.Validate(); err != nil {
		return nil, err
	}
	return hm.GetMergedHeaders(), nil
}

// Credentials 认证网关使用的登录凭据; 只配置了一半时返回验证错误
func (hm *HeaderManager) Credentials() (models.Credentials, error) {
	if err := hm.LoadConfig(); err != nil {
		return models.Credentials{}, err
	}
	if err := hm.validator.ValidateCredentials(hm.site.source, hm.credentials); err != nil {
		return models.Credentials{}, err
	}
	return hm.credentials, nil
}
