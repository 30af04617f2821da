package core

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/RecoveryAshes/JournalCrawler/internal/models"
	"github.com/RecoveryAshes/JournalCrawler/internal/utils"
)

// Catalog 已下载文件与期刊元数据的SQLite目录
// nil *Catalog 是合法的空实现, 对应配置中未启用目录
type Catalog struct {
	db   *sql.DB
	path string
}

// NewCatalog 打开或创建目录数据库; path为空时返回nil
func NewCatalog(path string) (*Catalog, error) {
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("创建目录数据库所在目录失败: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("打开目录数据库失败: %w", err)
	}
	// 多个worker共用一个连接, 写入在驱动内串行
	db.SetMaxOpenConns(1)

	c := &Catalog{db: db, path: path}
	if err := c.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("创建目录表失败: %w", err)
	}
	utils.Debugf("目录数据库: %s", path)
	return c, nil
}

// Close 关闭数据库
func (c *Catalog) Close() error {
	if c == nil {
		return nil
	}
	return c.db.Close()
}

func (c *Catalog) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS stored_files (
			id TEXT PRIMARY KEY,
			record_key TEXT NOT NULL,
			url TEXT NOT NULL,
			path TEXT NOT NULL UNIQUE,
			ext TEXT NOT NULL,
			size INTEGER NOT NULL,
			sha256 TEXT NOT NULL,
			stored_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stored_files_record ON stored_files(record_key)`,
		`CREATE TABLE IF NOT EXISTS journals (
			url TEXT PRIMARY KEY,
			variant TEXT NOT NULL,
			discipline_tree TEXT,
			discipline_name TEXT,
			name TEXT,
			issn TEXT,
			online_issn TEXT,
			publisher TEXT,
			year_from TEXT,
			year_to TEXT,
			most_recent_issue TEXT,
			abstract TEXT,
			currently_known_as TEXT,
			formerly_known_as TEXT,
			impact_factor TEXT,
			isi_ranking TEXT,
			scraped_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := c.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// RecordFile 记录一个已保存的文件; 同一路径重复下载时覆盖旧记录
func (c *Catalog) RecordFile(ctx context.Context, f models.StoredFile) error {
	if c == nil {
		return nil
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO stored_files (id, record_key, url, path, ext, size, sha256, stored_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			id = excluded.id,
			record_key = excluded.record_key,
			url = excluded.url,
			ext = excluded.ext,
			size = excluded.size,
			sha256 = excluded.sha256,
			stored_at = excluded.stored_at`,
		f.ID, f.RecordKey, f.URL, f.Path, f.Ext, f.Size, f.SHA256, f.StoredAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("写入文件记录失败 [%s]: %w", f.Path, err)
	}
	return nil
}

// UpsertJournal 按期刊URL插入或更新元数据
func (c *Catalog) UpsertJournal(ctx context.Context, variant models.Variant, j models.JournalInfo) error {
	if c == nil {
		return nil
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO journals (url, variant, discipline_tree, discipline_name, name, issn, online_issn,
			publisher, year_from, year_to, most_recent_issue, abstract, currently_known_as,
			formerly_known_as, impact_factor, isi_ranking, scraped_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			variant = excluded.variant,
			discipline_tree = excluded.discipline_tree,
			discipline_name = excluded.discipline_name,
			name = excluded.name,
			issn = excluded.issn,
			online_issn = excluded.online_issn,
			publisher = excluded.publisher,
			year_from = excluded.year_from,
			year_to = excluded.year_to,
			most_recent_issue = excluded.most_recent_issue,
			abstract = excluded.abstract,
			currently_known_as = excluded.currently_known_as,
			formerly_known_as = excluded.formerly_known_as,
			impact_factor = excluded.impact_factor,
			isi_ranking = excluded.isi_ranking,
			scraped_at = excluded.scraped_at`,
		j.JournalURL, string(variant), j.DisciplineTree, j.DisciplineName, j.JournalName, j.ISSN, j.OnlineISSN,
		j.Publisher, j.YearFrom, j.YearTo, j.MostRecentIssue, j.Abstract, j.CurrentlyKnownAs,
		j.FormerlyKnownAs, j.ImpactFactor, j.ISIRanking, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("写入期刊元数据失败 [%s]: %w", j.JournalURL, err)
	}
	return nil
}

// CountFiles 已记录的文件数
func (c *Catalog) CountFiles(ctx context.Context) (int, error) {
	return c.count(ctx, "stored_files")
}

// CountJournals 已记录的期刊数
func (c *Catalog) CountJournals(ctx context.Context) (int, error) {
	return c.count(ctx, "journals")
}

func (c *Catalog) count(ctx context.Context, table string) (int, error) {
	if c == nil {
		return 0, nil
	}
	var n int
	if err := c.db.QueryRowContext(ctx, "SELECT count(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("统计%s失败: %w", table, err)
	}
	return n, nil
}
