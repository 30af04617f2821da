package core

import (
	"context"
	"encoding/csv"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/RecoveryAshes/JournalCrawler/internal/crawlers"
	"github.com/RecoveryAshes/JournalCrawler/internal/models"
	"github.com/RecoveryAshes/JournalCrawler/internal/utils"
	"github.com/stretchr/testify/require"
)

func init() {
	utils.Discard()
}

// route 按请求生成页面
type route func(req crawlers.FetchRequest) *crawlers.Page

// fakeFetcher 按URL返回预置页面, 记录所有请求
type fakeFetcher struct {
	mu       sync.Mutex
	routes   map[string]route
	requests []crawlers.FetchRequest
	closed   bool
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{routes: make(map[string]route)}
}

// html 固定返回一段HTML
func (f *fakeFetcher) html(url, body string) {
	f.handle(url, func(crawlers.FetchRequest) *crawlers.Page {
		return htmlPage(body)
	})
}

func (f *fakeFetcher) handle(url string, r route) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[url] = r
}

func (f *fakeFetcher) Fetch(ctx context.Context, req crawlers.FetchRequest) (*crawlers.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, crawlers.ErrFetcherClosed
	}
	f.requests = append(f.requests, req)
	r, ok := f.routes[req.URL]
	f.mu.Unlock()

	var page *crawlers.Page
	if ok {
		page = r(req)
	} else {
		page = &crawlers.Page{Status: http.StatusNotFound}
	}
	if page.URL == "" {
		page.URL = req.URL
	}
	page.RequestURL = req.URL
	return page, nil
}

func (f *fakeFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// urls 按顺序返回请求过的URL
func (f *fakeFetcher) urls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.requests))
	for i, r := range f.requests {
		out[i] = r.URL
	}
	return out
}

// posts POST请求的数量
func (f *fakeFetcher) posts(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r.URL == url && r.Form != nil {
			n++
		}
	}
	return n
}

func htmlPage(body string) *crawlers.Page {
	return &crawlers.Page{
		Status: http.StatusOK,
		Body:   []byte("<html><head></head><body>" + body + "</body></html>"),
		Header: http.Header{"Content-Type": []string{"text/html; charset=utf-8"}},
	}
}

func filePage(contentType, body string) *crawlers.Page {
	return &crawlers.Page{
		Status: http.StatusOK,
		Body:   []byte(body),
		Header: http.Header{"Content-Type": []string{contentType}},
	}
}

func hasCookie(cookies []models.Cookie, name, value string) bool {
	for _, c := range cookies {
		if c.Name == name && c.Value == value {
			return true
		}
	}
	return false
}

// recordSink 收集记录
type recordSink struct {
	mu       sync.Mutex
	records  []models.CanonicalRecord
	journals []models.JournalInfo
}

func (s *recordSink) Accept(_ context.Context, r models.CanonicalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
	return nil
}

func (s *recordSink) AcceptJournal(_ context.Context, j models.JournalInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journals = append(s.journals, j)
	return nil
}

// readRows 读取诊断CSV, 不含表头; 文件不存在时返回nil
func readRows(t *testing.T, dir string, category models.LogCategory) [][]string {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, category.FileName()))
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	require.Equal(t, category.Header(), rows[0])
	return rows[1:]
}
