package crawlers

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/RecoveryAshes/JournalCrawler/internal/models"
	"github.com/RecoveryAshes/JournalCrawler/internal/utils"
	"github.com/gocolly/colly/v2"
)

const (
	ctxKeyPage  = "page"
	ctxKeyError = "error"
)

// StaticFetcher HTTP抓取器(使用Colly)
// 每个worker持有一个实例, cookie jar在该worker的所有请求间共享
type StaticFetcher struct {
	collector *colly.Collector
	config    models.CrawlConfig

	// HTTP头部提供者
	headerProvider models.HeaderProvider

	mu     sync.Mutex
	closed bool
}

// NewStaticFetcher 创建静态抓取器
func NewStaticFetcher(config models.CrawlConfig, headerProvider models.HeaderProvider) (*StaticFetcher, error) {
	timeout := time.Duration(config.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.MaxBodySize(0), // PDF可能很大
		colly.ParseHTTPErrorResponse(),
		colly.IgnoreRobotsTxt(),
	)

	c.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: config.InsecureTLS,
		},
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	})
	c.SetRequestTimeout(timeout)

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("创建cookie jar失败: %w", err)
	}
	c.SetCookieJar(jar)

	if config.InsecureTLS {
		utils.Debugf("静态抓取器: TLS证书验证已禁用")
	}
	utils.Debugf("静态抓取器: 请求超时 %d 秒", int(timeout.Seconds()))

	sf := &StaticFetcher{
		collector:      c,
		config:         config,
		headerProvider: headerProvider,
	}
	sf.setupCallbacks()
	return sf, nil
}

// setupCallbacks 设置Colly回调, 结果通过请求上下文传回Fetch
func (sf *StaticFetcher) setupCallbacks() {
	sf.collector.OnRequest(func(r *colly.Request) {
		// 应用自定义HTTP头部, 表单的Content-Type保持不变
		if sf.headerProvider != nil {
			headers, err := sf.headerProvider.GetHeaders()
			if err != nil {
				utils.Warnf("获取HTTP头部失败: %v", err)
			} else {
				for name, values := range headers {
					if len(values) == 0 || strings.EqualFold(name, "Content-Type") {
						continue
					}
					r.Headers.Set(name, values[0])
				}
			}
		}
		utils.Debugf("请求: %s %s", r.Method, r.URL.String())
	})

	sf.collector.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(ctxKeyPage, sf.toPage(r))
	})

	sf.collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			r.Ctx.Put(ctxKeyPage, sf.toPage(r))
			return
		}
		if r != nil && r.Ctx != nil {
			r.Ctx.Put(ctxKeyError, err)
		}
	})
}

// toPage 把Colly响应转为Page
func (sf *StaticFetcher) toPage(r *colly.Response) *Page {
	body := r.Body
	var header http.Header
	if r.Headers != nil {
		header = *r.Headers
		if enc := header.Get("Content-Encoding"); enc != "" {
			decompressed, err := decompressResponse(enc, r.Body)
			if err != nil {
				utils.Warnf("解压响应失败 [%s] (编码=%s): %v", r.Request.URL, enc, err)
			} else {
				body = decompressed
			}
		}
	}

	finalURL := r.Request.URL.String()
	return &Page{
		Status:  r.StatusCode,
		URL:     finalURL,
		Body:    body,
		Header:  header,
		Cookies: models.FromHTTPCookies(sf.collector.Cookies(finalURL), r.Request.URL.Hostname()),
	}
}

// Fetch 执行请求
func (sf *StaticFetcher) Fetch(ctx context.Context, req FetchRequest) (*Page, error) {
	sf.mu.Lock()
	defer sf.mu.Unlock()

	if sf.closed {
		return nil, ErrFetcherClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sf.seedCookies(req.URL, req.Cookies)

	hdr := http.Header{}
	var body *strings.Reader
	if req.Form != nil {
		hdr.Set("Content-Type", "application/x-www-form-urlencoded")
		body = strings.NewReader(req.Form.Encode())
	}
	if req.Referer != "" {
		hdr.Set("Referer", req.Referer)
	}

	cctx := colly.NewContext()
	var err error
	if body != nil {
		err = sf.collector.Request(req.Method(), req.URL, body, cctx, hdr)
	} else {
		err = sf.collector.Request(req.Method(), req.URL, nil, cctx, hdr)
	}

	if page, ok := cctx.GetAny(ctxKeyPage).(*Page); ok {
		page.RequestURL = req.URL
		return page, nil
	}
	if cbErr, ok := cctx.GetAny(ctxKeyError).(error); ok {
		err = cbErr
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err == nil {
		err = fmt.Errorf("没有响应")
	}
	return nil, &models.FetchError{URL: req.URL, Cause: err}
}

// seedCookies 把会话cookie按域名写入jar
func (sf *StaticFetcher) seedCookies(rawURL string, cookies []models.Cookie) {
	if len(cookies) == 0 {
		return
	}
	scheme := "https"
	if u, err := url.Parse(rawURL); err == nil && u.Scheme != "" {
		scheme = u.Scheme
	}

	byDomain := make(map[string][]models.Cookie)
	for _, c := range cookies {
		domain := strings.TrimPrefix(c.Domain, ".")
		if domain == "" {
			domain = models.HostOf(rawURL)
		}
		byDomain[domain] = append(byDomain[domain], c)
	}
	for domain, group := range byDomain {
		sf.collector.SetCookies(scheme+"://"+domain+"/", models.ToHTTPCookies(group))
	}
}

// Close 关闭抓取器
func (sf *StaticFetcher) Close() error {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	sf.closed = true
	return nil
}
