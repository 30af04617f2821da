package models

// OutcomeKind 页面分类结果
type OutcomeKind int

const (
	OutcomeEmpty  OutcomeKind = iota // 没有任何预期的子元素
	OutcomeSingle                    // 只有一种子元素
	OutcomeMixed                     // 同时存在两种子元素
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeEmpty:
		return "empty"
	case OutcomeSingle:
		return "single"
	case OutcomeMixed:
		return "mixed"
	default:
		return "unknown"
	}
}

// Outcome 某一层级页面的分类结果
type Outcome struct {
	Level Level
	Kind  OutcomeKind

	// Primary 主类子元素数量(如带PDF的文章), Secondary 次类数量(如仅馆藏链接)
	Primary   int
	Secondary int

	// 文章层级专用
	MissingPDF      bool
	MissingCitation bool
}

// PrimaryOnly 只存在主类子元素
func (o Outcome) PrimaryOnly() bool {
	return o.Kind == OutcomeSingle && o.Primary > 0
}

// SecondaryOnly 只存在次类子元素
func (o Outcome) SecondaryOnly() bool {
	return o.Kind == OutcomeSingle && o.Primary == 0 && o.Secondary > 0
}

// LogCategory 诊断日志类别
type LogCategory string

const (
	LogJournalWithoutIssues LogCategory = "journal-without-issues"
	LogIssueMixedArticles   LogCategory = "issue-mixed-articles"
	LogIssueNoPDFArticles   LogCategory = "issue-no-pdf-articles"
	LogIssueNoArticles      LogCategory = "issue-no-articles"
	LogArticleNoPDF         LogCategory = "article-no-pdf"
	LogArticleNoRIS         LogCategory = "article-no-ris"
	LogDisciplineNoContent  LogCategory = "discipline-no-content"
	LogAuthRejected         LogCategory = "auth-rejected"
	LogFetchFailed          LogCategory = "fetch-failed"
	LogRecordParseError     LogCategory = "record-parse-error"
	LogDownloadFailed       LogCategory = "download-failed"
)

// categoryFiles 每个类别对应的日志文件名
var categoryFiles = map[LogCategory]string{
	LogJournalWithoutIssues: "log_journals_without_issues.csv",
	LogIssueMixedArticles:   "log_mix_pdf_and_no_pdf_issues.csv",
	LogIssueNoPDFArticles:   "log_no_pdf_issues.csv",
	LogIssueNoArticles:      "log_no_article_issues.csv",
	LogArticleNoPDF:         "log_article_no_pdf_file.csv",
	LogArticleNoRIS:         "log_article_no_ris_file.csv",
	LogDisciplineNoContent:  "log_discipline_no_content.csv",
	LogAuthRejected:         "log_auth_rejected.csv",
	LogFetchFailed:          "log_fetch_failed.csv",
	LogRecordParseError:     "log_record_parse_error.csv",
	LogDownloadFailed:       "log_download_failed.csv",
}

// FileName 类别对应的文件名
func (c LogCategory) FileName() string {
	if name, ok := categoryFiles[c]; ok {
		return name
	}
	return "log_" + string(c) + ".csv"
}

// Header 类别的固定表头
func (c LogCategory) Header() []string {
	switch c {
	case LogDisciplineNoContent:
		return []string{"Discipline_Name", "URL"}
	case LogAuthRejected:
		return []string{"Host", "URL"}
	case LogFetchFailed, LogDownloadFailed, LogRecordParseError:
		return []string{"Name", "Reason", "URL"}
	default:
		return []string{"ISSN", "Journal_Name", "URL"}
	}
}

// AllLogCategories 所有诊断类别
func AllLogCategories() []LogCategory {
	return []LogCategory{
		LogJournalWithoutIssues, LogIssueMixedArticles, LogIssueNoPDFArticles,
		LogIssueNoArticles, LogArticleNoPDF, LogArticleNoRIS, LogDisciplineNoContent,
		LogAuthRejected, LogFetchFailed, LogRecordParseError, LogDownloadFailed,
	}
}

// LogEntry 一条诊断记录: {关键字段..., URL}
type LogEntry struct {
	Category LogCategory
	Fields   []string
	URL      string
}

// Row 按表头顺序输出的一行,字段不足时补空
func (e LogEntry) Row() []string {
	header := e.Category.Header()
	row := make([]string, len(header))
	for i := 0; i < len(header)-1 && i < len(e.Fields); i++ {
		row[i] = e.Fields[i]
	}
	row[len(header)-1] = e.URL
	return row
}
