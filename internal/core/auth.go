package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/RecoveryAshes/JournalCrawler/internal/crawlers"
	"github.com/RecoveryAshes/JournalCrawler/internal/models"
	"github.com/RecoveryAshes/JournalCrawler/internal/utils"
)

// ErrCredentialsRejected 提交凭据后仍停留在登录页
var ErrCredentialsRejected = errors.New("凭据被拒绝")

// FetchFunc 带会话的一次抓取
type FetchFunc func(ctx context.Context, req crawlers.FetchRequest) (*crawlers.Page, error)

// AuthGate 登录检查
// 每个分支对每个主机只检查一次, 已登录页面直接放行
type AuthGate struct {
	loginForm string
	creds     models.Credentials
	enabled   bool
	diag      *Diagnostics
}

// NewAuthGate 创建登录检查; enabled为false时所有页面直接放行
func NewAuthGate(loginForm string, creds models.Credentials, enabled bool, diag *Diagnostics) *AuthGate {
	return &AuthGate{
		loginForm: loginForm,
		creds:     creds,
		enabled:   enabled,
		diag:      diag,
	}
}

// RequiresLogin 页面上是否有登录表单
func (g *AuthGate) RequiresLogin(page *crawlers.Page) bool {
	if page == nil || len(page.Body) == 0 {
		return false
	}
	doc, err := page.Document()
	if err != nil {
		return false
	}
	return doc.Exists(g.loginForm)
}

// SubmitCredentials 填写登录表单并提交一次
func (g *AuthGate) SubmitCredentials(ctx context.Context, page *crawlers.Page, creds models.Credentials, fetch FetchFunc) (*crawlers.Page, error) {
	if creds.Empty() {
		return nil, fmt.Errorf("%w: 未配置用户名或密码", ErrCredentialsRejected)
	}

	doc, err := page.Document()
	if err != nil {
		return nil, fmt.Errorf("解析登录页失败: %w", err)
	}
	form, err := crawlers.ExtractForm(doc, g.loginForm)
	if err != nil {
		return nil, err
	}

	req := form.Request(map[string]string{
		"user": creds.User,
		"pass": creds.Pass,
	})
	req.Referer = page.URL
	return fetch(ctx, req)
}

// Ensure 必要时登录, 返回可继续解析的页面
// req是得到page的原始请求, 登录后落在其它页面时会重新请求一次
func (g *AuthGate) Ensure(ctx context.Context, b *Branch, req crawlers.FetchRequest, page *crawlers.Page, fetch FetchFunc) (*crawlers.Page, error) {
	if !g.enabled {
		return page, nil
	}

	host := models.HostOf(page.RequestURL)
	if !b.checkHost(host) {
		return page, nil
	}
	if !g.RequiresLogin(page) {
		utils.Debugf("[%s] 无需登录", host)
		return page, nil
	}

	prev := b.enter(StateAuthenticating)
	defer b.enter(prev)

	utils.Infof("🔐 检测到登录表单, 提交凭据: %s (%s)", host, g.creds)
	next, err := g.SubmitCredentials(ctx, page, g.creds, fetch)
	if err != nil {
		if errors.Is(err, ErrCredentialsRejected) {
			return nil, g.reject(host, page.URL, err)
		}
		return nil, err
	}
	if g.RequiresLogin(next) {
		return nil, g.reject(host, page.URL, ErrCredentialsRejected)
	}
	utils.Infof("✅ 登录成功: %s", host)

	if next.URL == req.URL || next.URL == page.URL {
		return next, nil
	}
	utils.Debugf("登录后跳转到 %s, 重新请求 %s", next.URL, req.URL)
	return fetch(ctx, crawlers.FetchRequest{URL: req.URL, Form: req.Form, Referer: req.Referer})
}

// reject 记录auth-rejected诊断
func (g *AuthGate) reject(host, pageURL string, cause error) error {
	if err := g.diag.Log(models.LogEntry{
		Category: models.LogAuthRejected,
		Fields:   []string{host},
		URL:      pageURL,
	}); err != nil {
		utils.Errorf("写入诊断日志失败: %v", err)
	}
	return cause
}
