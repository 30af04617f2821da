package core

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/RecoveryAshes/JournalCrawler/internal/crawlers"
	"github.com/RecoveryAshes/JournalCrawler/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tandfSiteWithFiles 页面与文件由同一个抓取器提供
func tandfSiteWithFiles() *fakeFetcher {
	site := tandfSite("secret")
	files := tandfFiles()
	for url, r := range files.routes {
		site.handle(url, r)
	}
	return site
}

func testConfig(t *testing.T, crawl models.CrawlConfig) *Config {
	t.Helper()
	root := t.TempDir()
	return &Config{
		Crawl: crawl,
		Storage: StorageConfig{
			Root:    filepath.Join(root, "downloads"),
			Catalog: filepath.Join(root, "downloads", "catalog.db"),
			Reports: filepath.Join(root, "output"),
		},
		Session:     SessionConfig{CookieFile: filepath.Join(root, "cookies.json")},
		Diagnostics: DiagnosticsConfig{Dir: filepath.Join(root, "diagnostics")},
	}
}

func writeSeeds(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seeds.txt")
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestCrawler_Run(t *testing.T) {
	crawl := tandfConfig()
	crawl.Concurrency = 2
	config := testConfig(t, crawl)

	missing := tandfBase + "/loi/missing"
	seeds := writeSeeds(t, "# T&F", tandfJournal, tandfJournal, missing)

	c, err := NewCrawler(config, seeds, nil)
	require.NoError(t, err)
	c.credentials = alice

	var mu sync.Mutex
	created := 0
	c.newFetcher = func(mode models.CrawlMode) (crawlers.Fetcher, error) {
		mu.Lock()
		defer mu.Unlock()
		created++
		return tandfSiteWithFiles(), nil
	}

	summary, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, created, "静态模式每个worker一个抓取器")

	require.Len(t, summary.Results, 2, "重复的种子只处理一次")
	assert.Equal(t, tandfJournal, summary.Results[0].Seed.URL)
	assert.False(t, summary.Results[0].Failed())
	assert.Equal(t, missing, summary.Results[1].Seed.URL)
	assert.True(t, summary.Results[1].Failed())

	stats := summary.Stats
	assert.Equal(t, 2, stats.Seeds)
	assert.Equal(t, 1, stats.FailedBranches)
	assert.Equal(t, 1, stats.Records)
	assert.Equal(t, 2, stats.StoredFiles)
	assert.Equal(t, 4, stats.Diagnostics)

	_, err = os.Stat(filepath.Join(config.Storage.Root, "Journal of Testing", "2021", "Issue 1", "First Article.pdf"))
	assert.NoError(t, err)

	saved, err := NewSessionStore(config.Session.CookieFile).Load()
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.True(t, hasCookie(saved.Cookies, tandfCookie, "ok"))

	catalog, err := NewCatalog(config.Storage.Catalog)
	require.NoError(t, err)
	defer catalog.Close()
	n, err := catalog.CountFiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := os.ReadFile(filepath.Join(config.Storage.Reports, "reports", "failed_branches.json"))
	require.NoError(t, err)
	var failed []models.FailedBranch
	require.NoError(t, json.Unmarshal(data, &failed))
	require.Len(t, failed, 1)
	assert.Equal(t, missing, failed[0].SeedURL)

	data, err = os.ReadFile(filepath.Join(config.Storage.Reports, "reports", "crawl_report.json"))
	require.NoError(t, err)
	var report models.CrawlReport
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, models.VariantTandF, report.Variant)
	assert.Equal(t, 1, report.Stats.Records)
}

func TestCrawler_DynamicModeUsesStaticDownloader(t *testing.T) {
	crawl := tandfConfig()
	crawl.Mode = models.ModeDynamic
	config := testConfig(t, crawl)

	c, err := NewCrawler(config, writeSeeds(t, tandfJournal), nil)
	require.NoError(t, err)
	c.credentials = alice

	var modes []models.CrawlMode
	c.newFetcher = func(mode models.CrawlMode) (crawlers.Fetcher, error) {
		modes = append(modes, mode)
		return tandfSiteWithFiles(), nil
	}

	summary, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.CrawlMode{models.ModeDynamic, models.ModeStatic}, modes)
	assert.Equal(t, 2, summary.Stats.StoredFiles)
}

func TestCrawler_InvalidConfig(t *testing.T) {
	config := testConfig(t, models.CrawlConfig{Variant: "sciencedirect", Mode: models.ModeStatic})
	_, err := NewCrawler(config, "seeds.txt", nil)
	assert.Error(t, err)
}
