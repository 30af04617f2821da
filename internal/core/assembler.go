package core

import (
	"html"
	"regexp"
	"strings"

	"github.com/RecoveryAshes/JournalCrawler/internal/models"
)

var (
	yearPattern   = regexp.MustCompile(`\d{4}`)
	spacesPattern = regexp.MustCompile(`\s{2,}`)
	escapePattern = regexp.MustCompile(`[\n\t\r]`)
)

// pathUnsafeChars 不能出现在文件/目录名中的字符
const pathUnsafeChars = `\/:*?"<>|`

// mostRecentPrefix 门户最新一期的标签前缀
const mostRecentPrefix = "Most Recent Issue: "

// TrimSpace 去除首尾空白
func TrimSpace(s string) string {
	return strings.TrimSpace(s)
}

// StripPathChars 删除 \ / : * ? " < > |
func StripPathChars(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(pathUnsafeChars, r) {
			return -1
		}
		return r
	}, s)
}

// ExtractYear 取第一个连续4位数字
func ExtractYear(s string) (string, error) {
	year := yearPattern.FindString(s)
	if year == "" {
		return "", &models.ParseError{Field: "year", Value: s, Reason: "没有4位数字年份"}
	}
	return year, nil
}

// NormalizeIssue 去掉"Most Recent Issue: "前缀以及逗号和冒号
func NormalizeIssue(s string) string {
	s = strings.ReplaceAll(s, mostRecentPrefix, "")
	s = strings.ReplaceAll(s, ",", "")
	return strings.ReplaceAll(s, ":", "")
}

// CollapseSpaces 连续两个以上空白合并为一个空格
func CollapseSpaces(s string) string {
	return spacesPattern.ReplaceAllString(s, " ")
}

// CleanText 清理抓取到的元数据文本:
// 反转义HTML实体, 去掉换行/制表符, 合并空白并去除首尾空白
func CleanText(s string) string {
	s = escapePattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = CollapseSpaces(s)
	return strings.TrimSpace(s)
}

// cleanName 路径组件: 去空白, 删非法字符, 合并空白
func cleanName(s string) string {
	s = StripPathChars(TrimSpace(s))
	return TrimSpace(CollapseSpaces(s))
}

// Assemble 把遍历上下文规范化为可下载的记录
// 年份缺失或路径段无效时返回*models.ParseError, 由调用方记录并丢弃该记录
func Assemble(tc models.TraversalContext, rawYear string, files []models.FileURL, cookies []models.Cookie) (models.CanonicalRecord, error) {
	year, err := ExtractYear(TrimSpace(rawYear))
	if err != nil {
		return models.CanonicalRecord{}, err
	}

	record := models.CanonicalRecord{
		Journal:  cleanName(CleanText(tc.JournalName)),
		Year:     year,
		Issue:    cleanName(NormalizeIssue(TrimSpace(CleanText(tc.IssueLabel)))),
		FileName: cleanName(CleanText(tc.ArticleTitle)),
		FileURLs: files,
		Cookies:  cookies,
	}

	// 三个字段都会成为路径段, 空值与"."/".."会让文件落到布局之外
	for _, f := range []struct{ field, value, raw string }{
		{"journal", record.Journal, tc.JournalName},
		{"issue", record.Issue, tc.IssueLabel},
		{"file_name", record.FileName, tc.ArticleTitle},
	} {
		if f.value == "" || f.value == "." || f.value == ".." {
			return models.CanonicalRecord{}, &models.ParseError{Field: f.field, Value: f.raw, Reason: "不能作为路径段"}
		}
	}
	return record, nil
}
