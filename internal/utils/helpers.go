package utils

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/RecoveryAshes/JournalCrawler/internal/models"
)

// urlColumns 可作为种子URL的列名, 按优先级排列
var urlColumns = []string{"Discipline URL", "Journal URL", "Journal_URL", "URL"}

// 学科列的别名, 不同站点导出的种子文件用空格或下划线
var (
	treeColumns = []string{"Discipline Tree", "Discipline_Tree"}
	nameColumns = []string{"Discipline Name", "Discipline_Name"}
)

// ReadSeeds 根据扩展名读取种子: .csv按表格读取, 其余按每行一个URL读取
func ReadSeeds(path string) ([]models.SeedTarget, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return ReadSeedsFromCSV(path)
	}

	urls, err := ReadURLsFromFile(path)
	if err != nil {
		return nil, err
	}
	seeds := make([]models.SeedTarget, 0, len(urls))
	for i, u := range urls {
		seeds = append(seeds, models.SeedTarget{URL: u, Line: i + 1})
	}
	return seeds, nil
}

// ReadSeedsFromCSV 从带表头的CSV读取种子
// 期刊变体需要URL列, 学科变体需要Discipline URL/Tree/Name列, 其余列作为标签保留
func ReadSeedsFromCSV(path string) ([]models.SeedTarget, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开种子文件失败: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("种子文件为空: %s", path)
		}
		return nil, fmt.Errorf("读取种子文件表头失败: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	urlIdx := firstColumn(header, urlColumns)
	if urlIdx < 0 {
		return nil, fmt.Errorf("种子文件缺少URL列 (可用列名: %s)", strings.Join(urlColumns, ", "))
	}
	treeIdx := firstColumn(header, treeColumns)
	nameIdx := firstColumn(header, nameColumns)

	seeds := make([]models.SeedTarget, 0)
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("读取种子文件失败 (行 %d): %w", line, err)
		}
		if isBlankRecord(record) || strings.HasPrefix(strings.TrimSpace(record[0]), "#") {
			continue
		}

		rawURL := strings.TrimSpace(field(record, urlIdx))
		if err := ValidateURL(rawURL); err != nil {
			Warnf("跳过无效URL (行 %d): %s - %v", line, rawURL, err)
			continue
		}

		seed := models.SeedTarget{
			URL:            rawURL,
			DisciplineTree: strings.TrimSpace(field(record, treeIdx)),
			DisciplineName: strings.TrimSpace(field(record, nameIdx)),
			Line:           line,
		}
		for i, name := range header {
			if i == urlIdx || i == treeIdx || i == nameIdx || name == "" {
				continue
			}
			if v := strings.TrimSpace(field(record, i)); v != "" {
				if seed.Tags == nil {
					seed.Tags = make(map[string]string)
				}
				seed.Tags[name] = v
			}
		}
		seeds = append(seeds, seed)
	}

	if len(seeds) == 0 {
		return nil, fmt.Errorf("种子文件中没有有效的URL")
	}

	Infof("从文件加载了 %d 个种子", len(seeds))
	return seeds, nil
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(h, name) {
			return i
		}
	}
	return -1
}

// firstColumn 按优先级返回第一个存在的列
func firstColumn(header []string, names []string) int {
	for _, name := range names {
		if idx := columnIndex(header, name); idx >= 0 {
			return idx
		}
	}
	return -1
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}

func isBlankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ReadURLsFromFile 从文件中读取URL列表
func ReadURLsFromFile(filepath string) ([]string, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("打开URL文件失败: %w", err)
	}
	defer file.Close()

	urls := make([]string, 0)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// 跳过空行和注释行
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if err := ValidateURL(line); err != nil {
			Warnf("跳过无效URL (行 %d): %s - %v", lineNum, line, err)
			continue
		}

		urls = append(urls, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取URL文件失败: %w", err)
	}

	if len(urls) == 0 {
		return nil, fmt.Errorf("URL文件中没有有效的URL")
	}

	Infof("从文件加载了 %d 个URL", len(urls))
	return urls, nil
}

// ValidateURL 验证URL格式
func ValidateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("URL格式无效: %w", err)
	}

	if parsed.Scheme == "" {
		return fmt.Errorf("URL缺少协议(http/https)")
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL协议必须是http或https")
	}

	if parsed.Host == "" {
		return fmt.Errorf("URL缺少主机名")
	}

	return nil
}
