package core

import (
	"fmt"

	"github.com/RecoveryAshes/JournalCrawler/internal/models"
)

// 登录表单标记
const (
	portalLoginForm    = `//form[@id="mc1"]`
	publisherLoginForm = `//form[@id="mc1" and @action="/login"]`
)

// Layout 下载类站点的页面结构
// 节点表达式从文档根查询, 以"."开头的表达式相对于上一层选中的节点
type Layout struct {
	Variant   models.Variant
	LoginForm string

	// 期刊页
	JournalName string
	ISSN        string // 取其中第一串数字, 为空时不提取

	// 卷/年份分组: VolumeLink为空时分组不单独打开, 期号链接直接在分组内
	Volumes     string
	VolumeTitle string
	VolumeLink  string

	// 期
	Issues            string
	IssueLabel        string
	IssueLink         string
	PeriodLabel       string // 期页面上同时给出年份与期号的标签
	InjectLatestIssue bool   // 当前期刊页本身就是最新一期

	// 文章列表
	Articles      string
	ArticleTitle  string
	ArticleLink   string
	PDFMarker     string // 列表中可下载PDF的标记, 为空时所有文章都视为带PDF
	LibraryMarker string // 仅能通过馆藏访问的标记

	// 文章详情页
	PDFLink      string
	CitationLink string

	// 引文导出页
	CitationForm     string
	CitationFormData map[string]string
}

// HasVolumePages 卷是否需要单独打开
func (l *Layout) HasVolumePages() bool {
	return l.VolumeLink != ""
}

// portalLayout 大学代理门户
var portalLayout = Layout{
	Variant:   models.VariantPortal,
	LoginForm: portalLoginForm,

	JournalName: `//div[@id="journal-details"]/h3/text()`,
	ISSN:        `//div[@id="journal-details"]/div[@class="issn"]/text()`,

	Volumes: `//div[@id="issues"]//div[@class="accordion-group" and descendant::ul]`,

	Issues:            `.//li/a/@href`,
	PeriodLabel:       `//div[@id="journal-details"]/following-sibling::div[@style]//span/text()`,
	InjectLatestIssue: true,

	Articles:      `//div[@id="result-list"]/ol[@id="toc"]/li[contains(@class, "journal-item row-")]/div[@class="journal-result"]`,
	ArticleTitle:  `.//h4//span[@class="article-title"]/text()`,
	ArticleLink:   `.//h4//a/@href`,
	PDFMarker:     `.//div[@class="clear links"]//a[contains(text(), "PDF Download")]`,
	LibraryMarker: `.//div[@class="clear links"]//a[contains(text(), "Find Full-Text @ My Library")]`,

	PDFLink:      `//div[@class="download-btn"]/a[contains(., "PDF Download")]/@href`,
	CitationLink: `//li/a[contains(text(), "RIS (EndNote)")]/@href`,
}

// tandfLayout Taylor & Francis
var tandfLayout = Layout{
	Variant:   models.VariantTandF,
	LoginForm: publisherLoginForm,

	JournalName: `//title/text()`,

	Volumes:     `//ul[@class="list-of-issues"]/li[@class="vol_li "]/a`,
	VolumeTitle: `./h3/text()`,
	VolumeLink:  `.`,

	Issues:     `//li[@class="vol_li active"]/ul/li/a`,
	IssueLabel: `./div[contains(@class, "issue-num")]/text()`,
	IssueLink:  `.`,

	Articles:     `//table[@class="articleEntry"]//div[@class="art_title linkable"]/a`,
	ArticleTitle: `./span/text()`,
	ArticleLink:  `.`,

	PDFLink:      `//a[@class="show-pdf"]/@href`,
	CitationLink: `//li[@class="downloadCitations"]/a/@href`,

	CitationForm:     `//form[@action="/action/downloadCitation"]`,
	CitationFormData: map[string]string{"include": "abs"},
}

// wileyLayout Wiley Online Library
var wileyLayout = Layout{
	Variant:   models.VariantWiley,
	LoginForm: publisherLoginForm,

	JournalName: `//h1[@id="journal-banner-text"]/text()`,

	Volumes:     `//ul[contains(@class, "loi__list")]//li/a`,
	VolumeTitle: `string(.)`,
	VolumeLink:  `.`,

	Issues:     `//ul[contains(@class, "loi__issues")]//h4/a`,
	IssueLabel: `string(.)`,
	IssueLink:  `.`,

	Articles:     `//div[@class="issue-item"]/a[h2]`,
	ArticleTitle: `string(./h2)`,
	ArticleLink:  `.`,

	PDFLink: `//div[@class="coolBar__second rlist"]//a[contains(@class, "pdf-download") and @title="Article PDF"]/@href`,
}

// LayoutFor 返回下载变体的页面结构
func LayoutFor(variant models.Variant) (*Layout, error) {
	var l Layout
	switch variant {
	case models.VariantPortal:
		l = portalLayout
	case models.VariantTandF:
		l = tandfLayout
	case models.VariantWiley:
		l = wileyLayout
	default:
		return nil, fmt.Errorf("变体 %q 没有下载页面结构", variant)
	}
	return &l, nil
}

// LoginFormFor 变体使用的登录表单标记
func LoginFormFor(variant models.Variant) string {
	switch variant {
	case models.VariantPortal, models.VariantPortalDiscipline:
		return portalLoginForm
	default:
		return publisherLoginForm
	}
}
