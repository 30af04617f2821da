package core

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/RecoveryAshes/JournalCrawler/internal/crawlers"
	"github.com/RecoveryAshes/JournalCrawler/internal/models"
	"github.com/RecoveryAshes/JournalCrawler/internal/utils"
)

// errInvalidContent 响应内容与期望的文件类型不符(常见于会话失效后返回的登录页)
var errInvalidContent = errors.New("响应内容不是有效的文件")

// FileRequest 一个待下载文件
type FileRequest struct {
	URL     string
	Form    url.Values
	Cookies []models.Cookie
	Ext     string
	Path    string
}

// errUnsafePath 记录字段无法构成存储根目录下的合法路径
var errUnsafePath = errors.New("存储路径不安全")

// StoragePath {root}/{journal}/{year}/{issue}/{fileName}.{ext}
// 只依赖记录内容, 同一记录总是得到同一路径; 结果必须位于root之下
func StoragePath(root string, record models.CanonicalRecord, ext string) (string, error) {
	for _, seg := range []string{record.Journal, record.Year, record.Issue, record.FileName} {
		if !validSegment(seg) {
			return "", fmt.Errorf("%w: 路径段 %q [%s]", errUnsafePath, seg, record.Key())
		}
	}

	path := filepath.Join(root, record.Journal, record.Year, record.Issue, record.FileName+"."+ext)
	rel, err := filepath.Rel(filepath.Clean(root), path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s 不在 %s 之下", errUnsafePath, path, root)
	}
	return path, nil
}

// Pipeline 文件下载管道
// 每个worker一个实例, 目录、诊断与计数器在worker之间共享
type Pipeline struct {
	root    string
	variant models.Variant
	fetcher crawlers.Fetcher
	diag    *Diagnostics
	catalog *Catalog
	stats   *Stats
}

// NewPipeline 创建下载管道
func NewPipeline(root string, variant models.Variant, fetcher crawlers.Fetcher, diag *Diagnostics, catalog *Catalog, stats *Stats) *Pipeline {
	if stats == nil {
		stats = &Stats{}
	}
	return &Pipeline{
		root:    root,
		variant: variant,
		fetcher: fetcher,
		diag:    diag,
		catalog: catalog,
		stats:   stats,
	}
}

// Requests 按记录中的顺序为每个文件URL生成下载请求
func (p *Pipeline) Requests(record models.CanonicalRecord) ([]FileRequest, error) {
	reqs := make([]FileRequest, 0, len(record.FileURLs))
	for _, f := range record.FileURLs {
		ext := models.ExtensionFor(f.URL)
		path, err := StoragePath(p.root, record, ext)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, FileRequest{
			URL:     f.URL,
			Form:    f.Form,
			Cookies: record.Cookies,
			Ext:     ext,
			Path:    path,
		})
	}
	return reqs, nil
}

// Accept 下载记录中的全部文件
// 单个文件失败只记录download-failed, 不影响其余文件; 只有ctx取消会返回错误
func (p *Pipeline) Accept(ctx context.Context, record models.CanonicalRecord) error {
	reqs, err := p.Requests(record)
	if err != nil {
		// 路径不合法时记录中的文件都不下载
		for _, f := range record.FileURLs {
			p.downloadFailed(record, f.URL, err)
		}
		return nil
	}

	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			return err
		}

		stored, err := p.download(ctx, record, req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			p.downloadFailed(record, req.URL, err)
			continue
		}

		p.stats.storedFiles.Add(1)
		p.stats.totalSize.Add(stored.Size)
		utils.Debugf("已保存: %s (%d 字节)", stored.Path, stored.Size)

		if err := p.catalog.RecordFile(ctx, stored); err != nil {
			utils.Warnf("%v", err)
		}
	}
	return nil
}

func (p *Pipeline) downloadFailed(record models.CanonicalRecord, fileURL string, err error) {
	p.stats.failedFiles.Add(1)
	if logErr := p.diag.Log(models.LogEntry{
		Category: models.LogDownloadFailed,
		Fields:   []string{record.FileName, err.Error()},
		URL:      fileURL,
	}); logErr != nil {
		utils.Errorf("写入诊断日志失败: %v", logErr)
	}
}

// validSegment 路径段不能为空, 不能是"."或"..", 也不能含分隔符
func validSegment(seg string) bool {
	if seg == "" || seg == "." || seg == ".." {
		return false
	}
	return !strings.ContainsAny(seg, `/\`)
}

// download 获取内容并写入目标路径
func (p *Pipeline) download(ctx context.Context, record models.CanonicalRecord, req FileRequest) (models.StoredFile, error) {
	page, err := p.fetcher.Fetch(ctx, crawlers.FetchRequest{
		URL:     req.URL,
		Form:    req.Form,
		Cookies: req.Cookies,
	})
	if err != nil {
		return models.StoredFile{}, err
	}
	if !page.OK() {
		return models.StoredFile{}, &models.FetchError{URL: req.URL, Status: page.Status}
	}
	if !crawlers.IsValidDownload(req.Ext, page.Header.Get("Content-Type"), page.Body) {
		return models.StoredFile{}, fmt.Errorf("%w: %s", errInvalidContent, req.URL)
	}

	if err := writeFileAtomic(req.Path, page.Body); err != nil {
		return models.StoredFile{}, err
	}

	return models.StoredFile{
		ID:        models.NewID(),
		RecordKey: record.Key(),
		URL:       req.URL,
		Path:      req.Path,
		Ext:       req.Ext,
		Size:      int64(len(page.Body)),
		SHA256:    crawlers.CalculateHash(page.Body),
		StoredAt:  time.Now(),
	}, nil
}

// AcceptJournal 追加到journals.csv并写入目录
func (p *Pipeline) AcceptJournal(ctx context.Context, info models.JournalInfo) error {
	if err := p.diag.LogJournal(info); err != nil {
		utils.Errorf("写入期刊元数据失败 [%s]: %v", info.JournalURL, err)
	}
	if err := p.catalog.UpsertJournal(ctx, p.variant, info); err != nil {
		utils.Warnf("%v", err)
	}
	return nil
}

// writeFileAtomic 写入同目录下的临时文件再rename, 已存在的文件被覆盖
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建目录失败 [%s]: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("写入文件失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("关闭文件失败: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("保存文件失败 [%s]: %w", path, err)
	}
	return nil
}
