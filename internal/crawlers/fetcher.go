package crawlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"

	"github.com/RecoveryAshes/JournalCrawler/internal/models"
)

var (
	ErrBrowserCrashed    = errors.New("浏览器崩溃")
	ErrMaxRetriesReached = errors.New("已达最大重试次数")
	ErrFetcherClosed     = errors.New("抓取器已关闭")
)

// FetchRequest 一次抓取请求
type FetchRequest struct {
	URL     string
	Form    url.Values // 非nil时以POST表单提交
	Cookies []models.Cookie
	Referer string
}

// Method 请求方法
func (r FetchRequest) Method() string {
	if r.Form != nil {
		return http.MethodPost
	}
	return http.MethodGet
}

// Page 抓取结果
type Page struct {
	Status     int
	URL        string // 跟随重定向后的最终URL
	RequestURL string
	Body       []byte
	Header     http.Header
	Cookies    []models.Cookie

	docOnce sync.Once
	doc     *Document
	docErr  error
}

// OK 状态码为200
func (p *Page) OK() bool {
	return p != nil && p.Status == http.StatusOK
}

// Document 惰性解析HTML, 结果会被缓存
func (p *Page) Document() (*Document, error) {
	p.docOnce.Do(func() {
		p.doc, p.docErr = ParseDocument(p.Body, p.URL)
	})
	return p.doc, p.docErr
}

// Fetcher 抓取能力
type Fetcher interface {
	// Fetch 执行一次请求; 网络层失败返回error, HTTP状态由Page.Status给出
	Fetch(ctx context.Context, req FetchRequest) (*Page, error)

	// Close 释放底层资源(浏览器/连接)
	Close() error
}
