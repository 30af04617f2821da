package models

import (
	"net/url"
	"strings"
	"time"
)

// FileURL 记录中的一个待下载文件
// Form非空时表示需要以POST表单提交获取(如引文导出)
type FileURL struct {
	URL  string     `json:"url"`
	Form url.Values `json:"form,omitempty"`
}

// CanonicalRecord 规范化后可直接下载的记录
type CanonicalRecord struct {
	Journal  string    `json:"journal"`
	Year     string    `json:"year"`
	Issue    string    `json:"issue"`
	FileName string    `json:"file_name"`
	FileURLs []FileURL `json:"file_urls"`
	Cookies  []Cookie  `json:"-"`
}

// Key 记录的稳定标识
func (r CanonicalRecord) Key() string {
	return strings.Join([]string{r.Journal, r.Year, r.Issue, r.FileName}, "/")
}

const (
	ExtPDF = "pdf"
	ExtTXT = "txt"
)

// citationMarkers 引文/RIS导出URL中出现的路径特征
var citationMarkers = []string{"risfile", "downloadcitation"}

// IsCitationURL 判断URL是否为引文导出
// ".ris"只看路径后缀, format=ris只看查询参数, 避免主机名或DOI中的"ris"误判
func IsCitationURL(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, m := range citationMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if strings.HasSuffix(strings.ToLower(u.Path), ".ris") {
		return true
	}
	for _, v := range u.Query()["format"] {
		if strings.EqualFold(v, "ris") {
			return true
		}
	}
	return false
}

// ExtensionFor 根据URL决定保存的扩展名
func ExtensionFor(rawURL string) string {
	if IsCitationURL(rawURL) {
		return ExtTXT
	}
	return ExtPDF
}

// StoredFile 已保存到磁盘的文件
type StoredFile struct {
	ID        string    `json:"id"`
	RecordKey string    `json:"record_key"`
	URL       string    `json:"url"`
	Path      string    `json:"path"`
	Ext       string    `json:"ext"`
	Size      int64     `json:"size"`
	SHA256    string    `json:"sha256"`
	StoredAt  time.Time `json:"stored_at"`
}

// JournalInfo 学科页抓取得到的期刊元数据
type JournalInfo struct {
	DisciplineTree   string `json:"discipline_tree"`
	DisciplineName   string `json:"discipline_name"`
	JournalName      string `json:"journal_name"`
	ISSN             string `json:"issn"`
	OnlineISSN       string `json:"online_issn"`
	Publisher        string `json:"publisher"`
	YearFrom         string `json:"year_from"`
	YearTo           string `json:"year_to"`
	MostRecentIssue  string `json:"most_recent_issue"`
	Abstract         string `json:"abstract"`
	CurrentlyKnownAs string `json:"currently_known_as"`
	FormerlyKnownAs  string `json:"formerly_known_as"`
	ImpactFactor     string `json:"impact_factor"`
	ISIRanking       string `json:"isi_ranking"`
	JournalURL       string `json:"journal_url"`
}

// JournalInfoHeader 期刊元数据CSV表头
func JournalInfoHeader() []string {
	return []string{
		"Discipline Tree", "Discipline Name", "Journal Name", "ISSN", "Online ISSN",
		"Publisher", "Year From", "Year To", "Most Recent Issue", "Abstract",
		"Currently known as", "Formerly known as", "Impact factor", "ISI ranking", "Journal URL",
	}
}

// Row 按表头顺序输出
func (j JournalInfo) Row() []string {
	return []string{
		j.DisciplineTree, j.DisciplineName, j.JournalName, j.ISSN, j.OnlineISSN,
		j.Publisher, j.YearFrom, j.YearTo, j.MostRecentIssue, j.Abstract,
		j.CurrentlyKnownAs, j.FormerlyKnownAs, j.ImpactFactor, j.ISIRanking, j.JournalURL,
	}
}
