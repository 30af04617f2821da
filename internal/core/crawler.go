package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/RecoveryAshes/JournalCrawler/internal/crawlers"
	"github.com/RecoveryAshes/JournalCrawler/internal/models"
	"github.com/RecoveryAshes/JournalCrawler/internal/utils"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
)

// FetcherFactory 为worker创建抓取器
type FetcherFactory func(mode models.CrawlMode) (crawlers.Fetcher, error)

// Crawler 主协调器
// 读取种子、加载会话, 按worker数并发遍历, 结束后生成报告
type Crawler struct {
	config    *Config
	crawl     models.CrawlConfig
	seedsFile string

	headerProvider models.HeaderProvider
	credentials    models.Credentials

	newFetcher FetcherFactory
}

// runShared worker之间共享的资源
type runShared struct {
	store   *SessionStore
	diag    *Diagnostics
	catalog *Catalog
	stats   *Stats
	layout  *Layout
	bar     *progressbar.ProgressBar

	mu      sync.Mutex
	summary RunSummary
}

func (s *runShared) record(r BranchResult) {
	s.mu.Lock()
	s.summary.add(r)
	s.mu.Unlock()
	if s.bar != nil {
		s.bar.Add(1)
	}
}

// NewCrawler 创建主协调器; headers为nil时使用默认头部且没有登录凭据
func NewCrawler(config *Config, seedsFile string, headers *HeaderManager) (*Crawler, error) {
	crawl := config.GetCrawlConfig()
	if err := crawl.Validate(); err != nil {
		return nil, fmt.Errorf("配置无效: %w", err)
	}

	c := &Crawler{
		config:    config,
		crawl:     crawl,
		seedsFile: seedsFile,
	}
	if headers != nil {
		creds, err := headers.Credentials()
		if err != nil {
			return nil, fmt.Errorf("读取登录凭据失败: %w", err)
		}
		c.headerProvider = headers
		c.credentials = creds
	}
	if crawl.UseAuth && c.credentials.Empty() {
		utils.Warn("未配置登录凭据, 遇到登录页时分支将中止")
	}
	c.newFetcher = c.defaultFetcher
	return c, nil
}

func (c *Crawler) defaultFetcher(mode models.CrawlMode) (crawlers.Fetcher, error) {
	if mode == models.ModeDynamic {
		return crawlers.NewBrowserFetcher(c.crawl, c.headerProvider)
	}
	return crawlers.NewStaticFetcher(c.crawl, c.headerProvider)
}

// Run 执行一次完整运行
// 单个分支的失败不会中止运行; 会话无法持久化或ctx取消时返回error
func (c *Crawler) Run(ctx context.Context) (*RunSummary, error) {
	startTime := time.Now()

	seeds, err := utils.ReadSeeds(c.seedsFile)
	if err != nil {
		return nil, err
	}
	if len(seeds) == 0 {
		return nil, fmt.Errorf("种子文件中没有URL: %s", c.seedsFile)
	}

	shared, err := c.prepare()
	if err != nil {
		return nil, err
	}
	defer shared.catalog.Close()

	utils.Infof("🚀 开始运行: 变体=%s 模式=%s 种子=%d", c.crawl.Variant, c.crawl.Mode, len(seeds))

	queue := crawlers.NewSeedQueue(len(seeds))
	for i, seed := range seeds {
		if err := queue.Push(ctx, models.SeedItem{Seed: seed, Index: i}); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			utils.Warnf("跳过种子(第%d行): %v", seed.Line, err)
		}
	}
	queue.Close()

	workers := c.workerCount(queue.PendingCount())
	utils.Infof("并发worker: %d", workers)
	shared.bar = utils.NewProgressBar(queue.PendingCount(), "遍历种子")

	g, gctx := errgroup.WithContext(ctx)
	for id := 1; id <= workers; id++ {
		id := id
		g.Go(func() error {
			return c.worker(gctx, id, queue, shared)
		})
	}
	runErr := g.Wait()
	if runErr == nil {
		runErr = ctx.Err()
	}

	summary := &shared.summary
	summary.sortResults()
	summary.Stats = shared.stats.Snapshot()
	summary.Stats.Diagnostics = shared.diag.Total()
	summary.Stats.Duration = time.Since(startTime).Seconds()

	c.writeReport(summary, startTime)
	summary.printSummary()
	shared.diag.printBreakdown()

	if runErr != nil {
		return summary, runErr
	}
	return summary, nil
}

// prepare 加载会话并打开诊断目录与文件目录
func (c *Crawler) prepare() (*runShared, error) {
	store := NewSessionStore(c.config.Session.CookieFile)
	if c.crawl.UseAuth {
		session, err := store.Load()
		if err != nil {
			return nil, fmt.Errorf("加载会话失败: %w", err)
		}
		if session.Empty() {
			utils.Infof("没有已保存的会话, 将在需要时登录")
		} else {
			utils.Infof("🍪 已加载会话: %d 个cookie", len(session.Cookies))
			utils.Debugf("会话cookie: %v", utils.NewHeaderRedactor().RedactCookies(session.Cookies))
		}
	}

	diag, err := NewDiagnostics(c.config.Diagnostics.Dir)
	if err != nil {
		return nil, err
	}
	catalog, err := NewCatalog(c.config.Storage.Catalog)
	if err != nil {
		return nil, err
	}

	shared := &runShared{
		store:   store,
		diag:    diag,
		catalog: catalog,
		stats:   &Stats{},
	}
	if !c.crawl.Variant.IsDiscipline() {
		if shared.layout, err = LayoutFor(c.crawl.Variant); err != nil {
			catalog.Close()
			return nil, err
		}
	}
	return shared, nil
}

// workerCount 配置优先, 否则按资源估算; 浏览器模式默认单worker
func (c *Crawler) workerCount(seeds int) int {
	n := c.crawl.Concurrency
	if n <= 0 {
		if c.crawl.Mode == models.ModeDynamic {
			n = 1
		} else {
			monitor := crawlers.NewResourceMonitor(crawlers.ResourceMonitorConfig{
				SafetyReserveMemory: int64(c.config.Resource.SafetyReserveMB) * 1024 * 1024,
				CPULoadThreshold:    c.config.Resource.CPULoadThreshold,
				MaxWorkers:          c.config.Resource.MaxWorkers,
			})
			utils.Debugf("资源状态: %s", monitor.GetMemoryStatus())
			n = monitor.RecommendedWorkers(c.crawl.Mode)
		}
	}
	if n > seeds {
		n = seeds
	}
	if n < 1 {
		n = 1
	}
	return n
}

// worker 独占一个抓取器, 依次处理队列中的种子
// 浏览器模式下文件下载另用一个HTTP抓取器
func (c *Crawler) worker(ctx context.Context, id int, queue *crawlers.SeedQueue, shared *runShared) error {
	fetcher, err := c.newFetcher(c.crawl.Mode)
	if err != nil {
		return fmt.Errorf("worker %d 创建抓取器失败: %w", id, err)
	}
	defer fetcher.Close()

	downloader := fetcher
	if c.crawl.Mode == models.ModeDynamic {
		if downloader, err = c.newFetcher(models.ModeStatic); err != nil {
			return fmt.Errorf("worker %d 创建下载器失败: %w", id, err)
		}
		defer downloader.Close()
	}

	pacer := NewPacer(c.crawl.MinPauseSeconds, c.crawl.MaxPauseSeconds)
	defer func() {
		utils.Debugf("[worker %d] 请求间停顿 %d 次", id, pacer.Pauses())
	}()

	pipeline := NewPipeline(c.config.Storage.Root, c.crawl.Variant, downloader, shared.diag, shared.catalog, shared.stats)
	engine, err := NewEngine(c.crawl, EngineDeps{
		Fetcher:     fetcher,
		Layout:      shared.layout,
		Gate:        NewAuthGate(LoginFormFor(c.crawl.Variant), c.credentials, c.crawl.UseAuth, shared.diag),
		Records:     pipeline,
		Journals:    pipeline,
		Diagnostics: shared.diag,
		Store:       shared.store,
		Pacer:       pacer,
		Stats:       shared.stats,
	})
	if err != nil {
		return err
	}

	for {
		item, ok := queue.Pop(ctx)
		if !ok {
			return nil
		}

		utils.Infof("[worker %d] 种子 #%d: %s", id, item.Index+1, item.Seed.URL)
		result, err := engine.Run(ctx, item.Seed)
		result.Index = item.Index
		shared.record(result)

		if err != nil {
			if errors.Is(err, ErrSessionPersist) {
				utils.Errorf("会话无法保存, 中止运行: %v", err)
			}
			return err
		}
	}
}

// writeReport 生成运行报告, 失败只记录警告
func (c *Crawler) writeReport(summary *RunSummary, startTime time.Time) {
	endTime := time.Now()
	report := &models.CrawlReport{
		RunID:          models.NewID(),
		Variant:        c.crawl.Variant,
		SeedsFile:      c.seedsFile,
		StartTime:      startTime,
		EndTime:        endTime,
		Duration:       endTime.Sub(startTime).Seconds(),
		Stats:          summary.Stats,
		FailedBranches: summary.FailedBranches(),
		StorageRoot:    c.config.Storage.Root,
		DiagnosticsDir: c.config.Diagnostics.Dir,
		Config:         c.crawl,
	}
	if err := utils.NewReporter(c.config.Storage.Reports).GenerateReport(report); err != nil {
		utils.Warnf("生成报告失败: %v", err)
	}
}
