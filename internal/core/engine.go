package core

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/RecoveryAshes/JournalCrawler/internal/crawlers"
	"github.com/RecoveryAshes/JournalCrawler/internal/models"
	"github.com/RecoveryAshes/JournalCrawler/internal/utils"
	"golang.org/x/net/html"
)

// issnNotFound 期刊页没有ISSN时的占位
const issnNotFound = "issn not found"

var digitsPattern = regexp.MustCompile(`\d+`)

// State 分支所处的遍历阶段
type State int

const (
	StateSeed State = iota
	StateAuthenticating
	StateAtDiscipline
	StateAtJournal
	StateAtVolume
	StateAtIssue
	StateAtArticle
	StateAtCitation
	StateEmitting
)

var stateNames = [...]string{
	"Seed", "Authenticating", "AtDiscipline", "AtJournal", "AtVolume",
	"AtIssue", "AtArticle", "AtCitation", "Emitting",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}

// Branch 一个种子的遍历状态, 只属于处理它的worker
type Branch struct {
	Seed models.SeedTarget

	state   State
	session *models.Session
	hosts   map[string]bool
	fetches int
	records int
}

func newBranch(seed models.SeedTarget, cookies []models.Cookie) *Branch {
	return &Branch{
		Seed:    seed,
		session: (*models.Session)(nil).Merge(cookies),
		hosts:   make(map[string]bool),
	}
}

// State 当前阶段
func (b *Branch) State() State {
	return b.state
}

// Cookies 分支当前的cookie快照
func (b *Branch) Cookies() []models.Cookie {
	return b.session.Snapshot()
}

// enter 进入新阶段, 返回之前的阶段
func (b *Branch) enter(s State) State {
	prev := b.state
	b.state = s
	return prev
}

// checkHost 主机首次出现时返回true
func (b *Branch) checkHost(host string) bool {
	if b.hosts[host] {
		return false
	}
	b.hosts[host] = true
	return true
}

func (b *Branch) absorb(cookies []models.Cookie) {
	b.session = b.session.Merge(cookies)
}

// RecordSink 接收规范化后的记录
type RecordSink interface {
	Accept(ctx context.Context, record models.CanonicalRecord) error
}

// JournalSink 接收学科页得到的期刊元数据
type JournalSink interface {
	AcceptJournal(ctx context.Context, info models.JournalInfo) error
}

// EngineDeps 遍历引擎的协作者
type EngineDeps struct {
	Fetcher     crawlers.Fetcher
	Layout      *Layout // 下载变体使用
	Gate        *AuthGate
	Records     RecordSink
	Journals    JournalSink
	Diagnostics *Diagnostics
	Store       *SessionStore
	Pacer       *Pacer
	Stats       *Stats
}

// Engine 遍历引擎
// 同一分支内的请求严格串行, 子节点按文档顺序访问
type Engine struct {
	config models.CrawlConfig
	deps   EngineDeps
	layout *Layout
}

// NewEngine 创建遍历引擎
func NewEngine(config models.CrawlConfig, deps EngineDeps) (*Engine, error) {
	if deps.Fetcher == nil {
		return nil, errors.New("缺少抓取器")
	}
	if deps.Diagnostics == nil {
		return nil, errors.New("缺少诊断日志")
	}
	if deps.Store == nil {
		return nil, errors.New("缺少会话存储")
	}
	if config.Variant.IsDiscipline() {
		if deps.Journals == nil {
			return nil, errors.New("学科变体缺少期刊元数据输出")
		}
	} else {
		if deps.Layout == nil {
			return nil, fmt.Errorf("变体 %q 缺少页面结构", config.Variant)
		}
		if deps.Records == nil {
			return nil, errors.New("缺少记录输出")
		}
	}
	if deps.Gate == nil {
		deps.Gate = NewAuthGate(LoginFormFor(config.Variant), models.Credentials{}, false, deps.Diagnostics)
	}
	if deps.Pacer == nil {
		deps.Pacer = NewPacer(config.MinPauseSeconds, config.MaxPauseSeconds)
	}
	if deps.Stats == nil {
		deps.Stats = &Stats{}
	}
	return &Engine{config: config, deps: deps, layout: deps.Layout}, nil
}

// Stats 引擎使用的计数器
func (e *Engine) Stats() *Stats {
	return e.deps.Stats
}

// Run 遍历一个种子
// 分支内的失败记入BranchResult, 只有会话持久化失败或ctx取消会作为error返回
func (e *Engine) Run(ctx context.Context, seed models.SeedTarget) (BranchResult, error) {
	start := time.Now()
	b := newBranch(seed, e.deps.Store.Current())
	e.deps.Stats.seeds.Add(1)

	var err error
	if e.config.Variant.IsDiscipline() {
		err = e.crawlDiscipline(ctx, b)
	} else {
		err = e.crawlJournal(ctx, b)
	}

	result := BranchResult{
		Seed:     seed,
		State:    b.state,
		Fetches:  b.fetches,
		Records:  b.records,
		Duration: time.Since(start).Seconds(),
	}
	if err == nil {
		return result, nil
	}

	result.Err = err
	if isFatal(ctx, err) {
		return result, err
	}
	e.deps.Stats.failedBranches.Add(1)
	utils.Warnf("分支中止 [%s] 阶段=%s: %v", seed.URL, b.state, err)
	return result, nil
}

// isFatal 需要结束整个运行的错误
func isFatal(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, ErrSessionPersist)
}

// stopsBranch 不能跳过、必须中止整个分支的错误
func stopsBranch(ctx context.Context, err error) bool {
	return isFatal(ctx, err) ||
		errors.Is(err, ErrCredentialsRejected) ||
		errors.Is(err, crawlers.ErrBrowserCrashed) ||
		errors.Is(err, crawlers.ErrFetcherClosed)
}

// fetchRaw 带分支cookie抓取, 吸收响应cookie, 非200视为失败
func (e *Engine) fetchRaw(ctx context.Context, b *Branch, req crawlers.FetchRequest) (*crawlers.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Cookies == nil {
		req.Cookies = b.Cookies()
	}

	b.fetches++
	e.deps.Stats.fetches.Add(1)
	utils.Debugf("[%s] %s %s", b.state, req.Method(), req.URL)

	page, err := e.deps.Fetcher.Fetch(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var fe *models.FetchError
		if errors.As(err, &fe) {
			return nil, err
		}
		return nil, &models.FetchError{URL: req.URL, Cause: err}
	}

	if len(page.Cookies) > 0 {
		b.absorb(page.Cookies)
		if e.config.UseAuth {
			if err := e.deps.Store.Merge(page.Cookies); err != nil {
				return nil, err
			}
		}
	}

	if !page.OK() {
		return nil, &models.FetchError{URL: req.URL, Status: page.Status}
	}
	return page, nil
}

// fetch 抓取并经过登录检查
func (e *Engine) fetch(ctx context.Context, b *Branch, req crawlers.FetchRequest) (*crawlers.Page, error) {
	page, err := e.fetchRaw(ctx, b, req)
	if err != nil {
		return nil, err
	}
	return e.deps.Gate.Ensure(ctx, b, req, page, func(ctx context.Context, r crawlers.FetchRequest) (*crawlers.Page, error) {
		return e.fetchRaw(ctx, b, r)
	})
}

// visit 抓取子页面
// 可恢复的失败记录fetch-failed后返回nil页面, 调用方跳过该子分支
func (e *Engine) visit(ctx context.Context, b *Branch, tc models.TraversalContext, req crawlers.FetchRequest) (*crawlers.Page, *crawlers.Document, error) {
	page, err := e.fetch(ctx, b, req)
	if err != nil {
		if stopsBranch(ctx, err) {
			return nil, nil, err
		}
		e.fetchFailed(tc, req.URL, err)
		return nil, nil, nil
	}
	doc, err := page.Document()
	if err != nil {
		e.fetchFailed(tc, page.URL, err)
		return nil, nil, nil
	}
	return page, doc, nil
}

// pause 兄弟节点之间停顿, 第一个之前不停
func (e *Engine) pause(ctx context.Context, index int) error {
	if index == 0 {
		return ctx.Err()
	}
	return e.deps.Pacer.Pause(ctx)
}

// report 写一条以期刊为键的诊断
func (e *Engine) report(category models.LogCategory, tc models.TraversalContext, pageURL string) {
	e.logEntry(models.LogEntry{
		Category: category,
		Fields:   []string{tc.ISSN, tc.JournalName},
		URL:      pageURL,
	})
}

func (e *Engine) fetchFailed(tc models.TraversalContext, pageURL string, err error) {
	name := tc.JournalName
	if name == "" {
		name = tc.DisciplineName
	}
	e.logEntry(models.LogEntry{
		Category: models.LogFetchFailed,
		Fields:   []string{name, err.Error()},
		URL:      pageURL,
	})
}

// logEntry 诊断写入失败不中止遍历, 但必须在日志中可见
func (e *Engine) logEntry(entry models.LogEntry) {
	if err := e.deps.Diagnostics.Log(entry); err != nil {
		utils.Errorf("写入诊断日志失败 [%s] %s: %v", entry.Category, entry.URL, err)
	}
}

// limit 按层级上限截断, 保持原有顺序
func limit[T any](config *models.CrawlConfig, level models.Level, items []T) []T {
	if n, ok := config.Limit(level); ok && len(items) > n {
		return items[:n]
	}
	return items
}

// issueRef 待访问的一期
type issueRef struct {
	URL   string
	Label string
	page  *crawlers.Page // 已抓取的页面(最新一期注入), 不再重复请求
}

// crawlJournal 期刊 → 卷/年 → 期 → 文章
func (e *Engine) crawlJournal(ctx context.Context, b *Branch) error {
	l := e.layout
	tc := models.NewTraversalContext(b.Seed)

	req := crawlers.FetchRequest{URL: b.Seed.URL}
	page, err := e.fetch(ctx, b, req)
	if err != nil {
		if !stopsBranch(ctx, err) {
			e.fetchFailed(tc, req.URL, err)
		}
		return err
	}
	doc, err := page.Document()
	if err != nil {
		return fmt.Errorf("解析期刊页失败: %w", err)
	}

	b.enter(StateAtJournal)
	tc = tc.WithJournal(CleanText(doc.Value(nil, l.JournalName)), e.extractISSN(doc, b.Seed))
	utils.Infof("📖 期刊: %s [%s]", tc.JournalName, b.Seed.URL)

	volumes := doc.Select(l.Volumes)
	if ClassifyChildren(models.LevelVolume, volumes).Kind == models.OutcomeEmpty {
		e.report(models.LogJournalWithoutIssues, tc, page.RequestURL)
		return nil
	}

	for i, vol := range limit(&e.config, models.LevelVolume, volumes) {
		if err := e.pause(ctx, i); err != nil {
			return err
		}
		if err := e.crawlVolume(ctx, b, tc, page, doc, vol, i); err != nil {
			return err
		}
	}
	return nil
}

// extractISSN 页面上没有时退回种子文件中的ISSN列
func (e *Engine) extractISSN(doc *crawlers.Document, seed models.SeedTarget) string {
	if e.layout.ISSN == "" {
		return ""
	}
	if issn := digitsPattern.FindString(doc.Value(nil, e.layout.ISSN)); issn != "" {
		return issn
	}
	if issn := seed.Tag("issn"); issn != "" {
		return issn
	}
	return issnNotFound
}

// crawlVolume 一个卷或年份分组
func (e *Engine) crawlVolume(ctx context.Context, b *Branch, tc models.TraversalContext, journalPage *crawlers.Page, doc *crawlers.Document, vol *html.Node, index int) error {
	l := e.layout
	b.enter(StateAtVolume)

	var title string
	if l.VolumeTitle != "" {
		title = CleanText(doc.Value(vol, l.VolumeTitle))
	}
	tc = tc.WithVolume(title)

	if !l.HasVolumePages() {
		var refs []issueRef
		if l.InjectLatestIssue && index == 0 {
			refs = append(refs, issueRef{URL: journalPage.URL, page: journalPage})
		}
		for _, link := range doc.Links(vol, l.Issues) {
			refs = append(refs, issueRef{URL: link})
		}
		if len(refs) == 0 {
			e.report(models.LogJournalWithoutIssues, tc, journalPage.URL)
			return nil
		}
		return e.crawlIssues(ctx, b, tc, refs)
	}

	links := doc.Links(vol, l.VolumeLink)
	if len(links) == 0 {
		e.report(models.LogJournalWithoutIssues, tc, journalPage.URL)
		return nil
	}
	vpage, vdoc, err := e.visit(ctx, b, tc, crawlers.FetchRequest{URL: links[0], Referer: journalPage.URL})
	if err != nil || vpage == nil {
		return err
	}

	nodes := vdoc.Select(l.Issues)
	if ClassifyChildren(models.LevelIssue, nodes).Kind == models.OutcomeEmpty {
		e.report(models.LogJournalWithoutIssues, tc, vpage.URL)
		return nil
	}

	refs := make([]issueRef, 0, len(nodes))
	for _, n := range nodes {
		issueLinks := vdoc.Links(n, l.IssueLink)
		if len(issueLinks) == 0 {
			continue
		}
		refs = append(refs, issueRef{URL: issueLinks[0], Label: CleanText(vdoc.Value(n, l.IssueLabel))})
	}
	return e.crawlIssues(ctx, b, tc, refs)
}

func (e *Engine) crawlIssues(ctx context.Context, b *Branch, tc models.TraversalContext, refs []issueRef) error {
	for i, ref := range limit(&e.config, models.LevelIssue, refs) {
		if err := e.pause(ctx, i); err != nil {
			return err
		}
		if err := e.crawlIssue(ctx, b, tc, ref); err != nil {
			return err
		}
	}
	return nil
}

// crawlIssue 文章列表页, 按列表分类决定是否下钻
func (e *Engine) crawlIssue(ctx context.Context, b *Branch, tc models.TraversalContext, ref issueRef) error {
	l := e.layout
	b.enter(StateAtIssue)
	tc = tc.WithIssue(ref.Label)

	page := ref.page
	var doc *crawlers.Document
	if page == nil {
		var err error
		page, doc, err = e.visit(ctx, b, tc, crawlers.FetchRequest{URL: ref.URL})
		if err != nil || page == nil {
			return err
		}
	} else {
		var err error
		if doc, err = page.Document(); err != nil {
			e.fetchFailed(tc, page.URL, err)
			return nil
		}
	}

	rawYear := tc.VolumeTitle
	if l.PeriodLabel != "" {
		label := CleanText(doc.Value(nil, l.PeriodLabel))
		tc = tc.WithIssue(label)
		rawYear = label
	}

	pdfBearing, libraryOnly := SplitArticles(doc, l, doc.Select(l.Articles))
	outcome := ClassifyListing(len(pdfBearing), len(libraryOnly))
	switch {
	case outcome.Kind == models.OutcomeEmpty:
		e.report(models.LogIssueNoArticles, tc, page.URL)
		return nil
	case outcome.Kind == models.OutcomeMixed:
		e.report(models.LogIssueMixedArticles, tc, page.URL)
	case outcome.SecondaryOnly():
		e.report(models.LogIssueNoPDFArticles, tc, page.URL)
		return nil
	}

	for i, article := range limit(&e.config, models.LevelArticle, pdfBearing) {
		if err := e.pause(ctx, i); err != nil {
			return err
		}
		if err := e.crawlArticle(ctx, b, tc, page, doc, article, rawYear); err != nil {
			return err
		}
	}
	return nil
}

// crawlArticle 文章详情页: PDF链接与引文链接分别检查
func (e *Engine) crawlArticle(ctx context.Context, b *Branch, tc models.TraversalContext, issuePage *crawlers.Page, doc *crawlers.Document, article *html.Node, rawYear string) error {
	l := e.layout
	b.enter(StateAtArticle)
	tc = tc.WithArticle(CleanText(doc.Value(article, l.ArticleTitle)))

	links := doc.Links(article, l.ArticleLink)
	if len(links) == 0 {
		e.report(models.LogArticleNoPDF, tc, issuePage.URL)
		if l.CitationLink != "" {
			e.report(models.LogArticleNoRIS, tc, issuePage.URL)
		}
		return nil
	}

	apage, adoc, err := e.visit(ctx, b, tc, crawlers.FetchRequest{URL: links[0], Referer: issuePage.URL})
	if err != nil || apage == nil {
		return err
	}

	pdfURL := firstOf(adoc.Links(nil, l.PDFLink))
	var citationURL string
	if l.CitationLink != "" {
		citationURL = firstOf(adoc.Links(nil, l.CitationLink))
	}

	outcome := ClassifyArticle(pdfURL, citationURL)
	if outcome.MissingPDF {
		e.report(models.LogArticleNoPDF, tc, apage.URL)
	}
	if outcome.MissingCitation && l.CitationLink != "" {
		e.report(models.LogArticleNoRIS, tc, apage.URL)
	}

	var files []models.FileURL
	if pdfURL != "" {
		files = append(files, models.FileURL{URL: pdfURL})
	}
	if citationURL != "" {
		if l.CitationForm == "" {
			files = append(files, models.FileURL{URL: citationURL})
		} else {
			file, err := e.crawlCitation(ctx, b, tc, citationURL, apage.URL)
			if err != nil {
				return err
			}
			if file != nil {
				files = append(files, *file)
			}
		}
	}
	if len(files) == 0 {
		return nil
	}
	return e.emit(ctx, b, tc, rawYear, files, apage.URL)
}

// crawlCitation 打开引文导出页, 把导出表单转换为待下载文件
func (e *Engine) crawlCitation(ctx context.Context, b *Branch, tc models.TraversalContext, citationURL, articleURL string) (*models.FileURL, error) {
	l := e.layout
	b.enter(StateAtCitation)

	cpage, cdoc, err := e.visit(ctx, b, tc, crawlers.FetchRequest{URL: citationURL, Referer: articleURL})
	if err != nil || cpage == nil {
		return nil, err
	}

	form, err := crawlers.ExtractForm(cdoc, l.CitationForm)
	if err != nil {
		utils.Debugf("引文导出表单缺失: %v", err)
		e.report(models.LogArticleNoRIS, tc, cpage.URL)
		return nil, nil
	}
	req := form.Request(l.CitationFormData)
	return &models.FileURL{URL: req.URL, Form: req.Form}, nil
}

// emit 规范化并交给下载管道, 每篇文章最多一条记录
func (e *Engine) emit(ctx context.Context, b *Branch, tc models.TraversalContext, rawYear string, files []models.FileURL, pageURL string) error {
	b.enter(StateEmitting)

	record, err := Assemble(tc, rawYear, files, b.Cookies())
	if err != nil {
		e.logEntry(models.LogEntry{
			Category: models.LogRecordParseError,
			Fields:   []string{tc.ArticleTitle, err.Error()},
			URL:      pageURL,
		})
		return nil
	}

	b.records++
	e.deps.Stats.records.Add(1)
	utils.Infof("📄 %s (%d个文件)", record.Key(), len(record.FileURLs))
	return e.deps.Records.Accept(ctx, record)
}

func firstOf(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
