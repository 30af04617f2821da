package crawlers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/RecoveryAshes/JournalCrawler/internal/models"
	"github.com/RecoveryAshes/JournalCrawler/internal/utils"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

const maxLaunchRetries = 3

// submitFormJS 在页面中构造隐藏表单并提交, 让浏览器自己处理重定向与cookie
const submitFormJS = `(action, fields) => {
	const form = document.createElement('form');
	form.method = 'POST';
	form.action = action;
	form.style.display = 'none';
	for (const [name, values] of Object.entries(fields)) {
		for (const value of values) {
			const input = document.createElement('input');
			input.type = 'hidden';
			input.name = name;
			input.value = value;
			form.appendChild(input);
		}
	}
	document.body.appendChild(form);
	form.submit();
}`

// BrowserFetcher 浏览器抓取器(使用Rod)
// 每个worker独占一个浏览器和一个标签页, 请求经互斥锁串行执行
type BrowserFetcher struct {
	config         models.CrawlConfig
	headerProvider models.HeaderProvider

	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page

	mu     sync.Mutex
	closed bool
}

// NewBrowserFetcher 启动浏览器, 失败时最多重试3次
func NewBrowserFetcher(config models.CrawlConfig, headerProvider models.HeaderProvider) (*BrowserFetcher, error) {
	bf := &BrowserFetcher{
		config:         config,
		headerProvider: headerProvider,
	}

	var lastErr error
	for attempt := 1; attempt <= maxLaunchRetries; attempt++ {
		if lastErr = bf.launchBrowser(); lastErr == nil {
			return bf, nil
		}
		utils.Warnf("启动浏览器失败(第%d次): %v", attempt, lastErr)
		bf.closeBrowser()
		time.Sleep(time.Duration(attempt) * time.Second)
	}
	return nil, fmt.Errorf("%w: %v", ErrMaxRetriesReached, lastErr)
}

// launchBrowser 启动浏览器并打开工作标签页
func (bf *BrowserFetcher) launchBrowser() error {
	l := launcher.New().Headless(bf.config.Headless)

	// 代理门户常使用自签名证书
	if bf.config.InsecureTLS {
		l = l.Set("ignore-certificate-errors")
		utils.Debugf("浏览器启动参数: --ignore-certificate-errors")
	}

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("启动浏览器失败: %w", err)
	}
	bf.launcher = l

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("连接浏览器失败: %w", err)
	}
	bf.browser = browser

	page, err := browser.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return fmt.Errorf("创建标签页失败: %w", err)
	}
	bf.page = page

	if err := bf.applyHeaders(); err != nil {
		utils.Warnf("设置浏览器请求头失败: %v", err)
	}

	utils.Debugf("浏览器已启动: %s", controlURL)
	return nil
}

// applyHeaders 把自定义头部设置为标签页的额外请求头
func (bf *BrowserFetcher) applyHeaders() error {
	if bf.headerProvider == nil {
		return nil
	}
	headers, err := bf.headerProvider.GetHeaders()
	if err != nil {
		return err
	}

	var dict []string
	for name, values := range headers {
		// User-Agent由浏览器决定, 覆盖会导致指纹不一致
		if len(values) == 0 || http.CanonicalHeaderKey(name) == "User-Agent" {
			continue
		}
		dict = append(dict, name, values[0])
	}
	if len(dict) == 0 {
		return nil
	}
	_, err = bf.page.SetExtraHeaders(dict)
	return err
}

// Fetch 在标签页中打开URL或提交表单
func (bf *BrowserFetcher) Fetch(ctx context.Context, req FetchRequest) (page *Page, err error) {
	bf.mu.Lock()
	defer bf.mu.Unlock()

	if bf.closed || bf.page == nil {
		return nil, ErrFetcherClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 浏览器进程异常时rod会panic, 转换为ErrBrowserCrashed
	defer func() {
		if r := recover(); r != nil {
			utils.Errorf("浏览器操作panic: URL=%s, 错误=%v", req.URL, r)
			page, err = nil, fmt.Errorf("%w: %v", ErrBrowserCrashed, r)
		}
	}()

	if err := bf.setCookies(req.Cookies); err != nil {
		utils.Warnf("写入浏览器cookie失败: %v", err)
	}

	timeout := time.Duration(bf.config.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	p := bf.page.Context(tctx)

	// 记录主文档的HTTP状态
	var statusMu sync.Mutex
	status := 0
	evctx, stopEvents := context.WithCancel(tctx)
	defer stopEvents()
	waitEvents := p.Context(evctx).EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type == proto.NetworkResourceTypeDocument && e.Response != nil {
			statusMu.Lock()
			status = e.Response.Status
			statusMu.Unlock()
		}
		return false
	})
	go waitEvents()

	if req.Form != nil {
		err = bf.submitForm(p, req.URL, req.Form)
	} else {
		err = p.Navigate(req.URL)
		if err == nil {
			err = p.WaitLoad()
		}
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &models.FetchError{URL: req.URL, Cause: err}
	}

	// 额外等待动态内容
	if bf.config.WaitTime > 0 {
		select {
		case <-time.After(time.Duration(bf.config.WaitTime) * time.Second):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	content, err := p.HTML()
	if err != nil {
		return nil, &models.FetchError{URL: req.URL, Cause: err}
	}

	finalURL := req.URL
	if info, err := p.Info(); err == nil && info.URL != "" {
		finalURL = info.URL
	}

	statusMu.Lock()
	code := status
	statusMu.Unlock()
	if code == 0 {
		// 缓存命中或事件丢失时没有状态, 页面已加载即视为成功
		code = http.StatusOK
	}

	return &Page{
		Status:     code,
		URL:        finalURL,
		RequestURL: req.URL,
		Body:       []byte(content),
		Header:     http.Header{"Content-Type": []string{"text/html"}},
		Cookies:    bf.readCookies(p, finalURL),
	}, nil
}

// submitForm 在当前页面中提交POST表单并等待导航完成
func (bf *BrowserFetcher) submitForm(p *rod.Page, action string, form url.Values) error {
	info, err := p.Info()
	if err != nil || info.URL == "" || info.URL == "about:blank" {
		// 新标签页还没有文档, 先打开空白页承载表单
		if err := p.Navigate("about:blank"); err != nil {
			return err
		}
	}

	fields := make(map[string][]string, len(form))
	for k, v := range form {
		fields[k] = v
	}

	wait := p.WaitNavigation(proto.PageLifecycleEventNameLoad)
	if _, err := p.Eval(submitFormJS, action, fields); err != nil {
		return fmt.Errorf("提交表单失败: %w", err)
	}
	wait()
	return nil
}

// setCookies 把会话cookie写入浏览器
func (bf *BrowserFetcher) setCookies(cookies []models.Cookie) error {
	if len(cookies) == 0 {
		return nil
	}
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		param := &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		if param.Path == "" {
			param.Path = "/"
		}
		if !c.Expires.IsZero() {
			param.Expires = proto.TimeSinceEpoch(c.Expires.Unix())
		}
		params = append(params, param)
	}
	return bf.page.SetCookies(params)
}

// readCookies 读取当前页面可见的cookie
func (bf *BrowserFetcher) readCookies(p *rod.Page, pageURL string) []models.Cookie {
	cookies, err := p.Cookies([]string{pageURL})
	if err != nil {
		utils.Debugf("读取浏览器cookie失败: %v", err)
		return nil
	}

	out := make([]models.Cookie, 0, len(cookies))
	for _, c := range cookies {
		cookie := models.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		if c.Expires > 0 {
			cookie.Expires = time.Unix(int64(c.Expires), 0)
		}
		out = append(out, cookie)
	}
	return out
}

// closeBrowser 关闭浏览器并结束进程
func (bf *BrowserFetcher) closeBrowser() {
	if bf.browser != nil {
		if err := bf.browser.Close(); err != nil {
			utils.Debugf("关闭浏览器失败: %v", err)
		}
		bf.browser = nil
		bf.page = nil
	}
	if bf.launcher != nil {
		bf.launcher.Kill()
		bf.launcher = nil
	}
}

// Close 关闭抓取器, 可重复调用
func (bf *BrowserFetcher) Close() error {
	bf.mu.Lock()
	defer bf.mu.Unlock()
	if bf.closed {
		return nil
	}
	bf.closed = true
	bf.closeBrowser()
	utils.Debugf("浏览器已关闭")
	return nil
}
