package core

import (
	"fmt"
	"sync"
	"testing"

	"github.com/RecoveryAshes/JournalCrawler/internal/models"
)

func TestDiagnostics_HeaderOnce(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDiagnostics(dir)
	if err != nil {
		t.Fatalf("创建诊断日志失败: %v", err)
	}

	for i := 0; i < 3; i++ {
		err := d.Log(models.LogEntry{
			Category: models.LogIssueNoArticles,
			Fields:   []string{"1234", "Journal, with comma"},
			URL:      fmt.Sprintf("https://example.org/issue/%d", i),
		})
		if err != nil {
			t.Fatalf("写入失败: %v", err)
		}
	}

	rows := readRows(t, dir, models.LogIssueNoArticles)
	if len(rows) != 3 {
		t.Fatalf("期望3行, 实际 %d", len(rows))
	}
	if rows[0][1] != "Journal, with comma" {
		t.Errorf("字段转义错误: %q", rows[0][1])
	}
	if rows[2][2] != "https://example.org/issue/2" {
		t.Errorf("行顺序错误: %v", rows[2])
	}
	if d.Count(models.LogIssueNoArticles) != 3 || d.Total() != 3 {
		t.Errorf("计数错误: %d/%d", d.Count(models.LogIssueNoArticles), d.Total())
	}
	if d.Count(models.LogArticleNoPDF) != 0 {
		t.Error("未写入的类别计数应为0")
	}
	if rows := readRows(t, dir, models.LogArticleNoPDF); rows != nil {
		t.Error("未写入的类别不应创建文件")
	}
}

func TestDiagnostics_ConcurrentRows(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDiagnostics(dir)
	if err != nil {
		t.Fatalf("创建诊断日志失败: %v", err)
	}

	const workers, perWorker = 8, 25
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				d.Log(models.LogEntry{
					Category: models.LogFetchFailed,
					Fields:   []string{fmt.Sprintf("worker-%d", w), "timeout"},
					URL:      fmt.Sprintf("https://example.org/%d/%d", w, i),
				})
			}
		}()
	}
	wg.Wait()

	rows := readRows(t, dir, models.LogFetchFailed)
	if len(rows) != workers*perWorker {
		t.Fatalf("期望%d行, 实际 %d", workers*perWorker, len(rows))
	}
	for _, row := range rows {
		if len(row) != 3 {
			t.Fatalf("行被截断或交错: %v", row)
		}
	}
}

func TestDiagnostics_LogJournal(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDiagnostics(dir)
	if err != nil {
		t.Fatalf("创建诊断日志失败: %v", err)
	}
	info := models.JournalInfo{JournalName: "Alpha", Abstract: "line one\nline two", JournalURL: "https://example.org/j"}
	if err := d.LogJournal(info); err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	if d.Total() != 0 {
		t.Error("期刊元数据不计入诊断条数")
	}
}
