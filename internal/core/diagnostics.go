package core

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/RecoveryAshes/JournalCrawler/internal/models"
	"github.com/RecoveryAshes/JournalCrawler/internal/utils"
)

// JournalsFile 学科变体输出的期刊元数据文件
const JournalsFile = "journals.csv"

// Diagnostics 诊断日志
// 每个类别一个CSV文件, 首次写入时带表头; 每行一次Write调用,
// 多个worker并发追加时行不会交错
type Diagnostics struct {
	dir string

	mu     sync.Mutex
	counts map[models.LogCategory]int
}

// NewDiagnostics 创建诊断日志目录
func NewDiagnostics(dir string) (*Diagnostics, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("创建诊断目录失败 [%s]: %w", dir, err)
	}
	return &Diagnostics{
		dir:    dir,
		counts: make(map[models.LogCategory]int),
	}, nil
}

// Dir 诊断目录
func (d *Diagnostics) Dir() string {
	return d.dir
}

// Log 追加一条诊断记录
func (d *Diagnostics) Log(entry models.LogEntry) error {
	utils.Warnf("[%s] %v %s", entry.Category, entry.Fields, entry.URL)

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.appendRow(entry.Category.FileName(), entry.Category.Header(), entry.Row()); err != nil {
		return err
	}
	d.counts[entry.Category]++
	return nil
}

// LogJournal 追加一条期刊元数据
func (d *Diagnostics) LogJournal(info models.JournalInfo) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.appendRow(JournalsFile, models.JournalInfoHeader(), info.Row())
}

// Count 某类别已写入的条数
func (d *Diagnostics) Count(category models.LogCategory) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counts[category]
}

// Total 已写入的诊断总条数
func (d *Diagnostics) Total() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	total := 0
	for _, n := range d.counts {
		total += n
	}
	return total
}

// printBreakdown 按类别打印诊断条数
func (d *Diagnostics) printBreakdown() {
	for _, c := range models.AllLogCategories() {
		if n := d.Count(c); n > 0 {
			utils.Infof("  %s: %d", c.FileName(), n)
		}
	}
}

// appendRow 以O_APPEND打开文件并一次写入(表头+)一行, 调用方持有锁
func (d *Diagnostics) appendRow(fileName string, header, row []string) error {
	path := filepath.Join(d.dir, fileName)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("打开诊断文件失败 [%s]: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("读取诊断文件信息失败 [%s]: %w", path, err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if info.Size() == 0 {
		w.Write(header)
	}
	w.Write(row)
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("格式化诊断记录失败: %w", err)
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("写入诊断文件失败 [%s]: %w", path, err)
	}
	return nil
}
