package core

import (
	"github.com/RecoveryAshes/JournalCrawler/internal/crawlers"
	"github.com/RecoveryAshes/JournalCrawler/internal/models"
	"golang.org/x/net/html"
)

// ClassifyChildren 某层级是否存在子元素
func ClassifyChildren(level models.Level, nodes []*html.Node) models.Outcome {
	out := models.Outcome{Level: level, Primary: len(nodes)}
	if len(nodes) > 0 {
		out.Kind = models.OutcomeSingle
	}
	return out
}

// ClassifyListing 按两类文章的数量分类文章列表
func ClassifyListing(pdfBearing, libraryOnly int) models.Outcome {
	out := models.Outcome{Level: models.LevelIssue, Primary: pdfBearing, Secondary: libraryOnly}
	switch {
	case pdfBearing > 0 && libraryOnly > 0:
		out.Kind = models.OutcomeMixed
	case pdfBearing > 0 || libraryOnly > 0:
		out.Kind = models.OutcomeSingle
	default:
		out.Kind = models.OutcomeEmpty
	}
	return out
}

// ClassifyArticle 标记文章缺少的文件, 两项互不影响
func ClassifyArticle(pdfURL, citationURL string) models.Outcome {
	out := models.Outcome{
		Level:           models.LevelArticle,
		MissingPDF:      pdfURL == "",
		MissingCitation: citationURL == "",
	}
	if !out.MissingPDF {
		out.Primary++
	}
	if !out.MissingCitation {
		out.Secondary++
	}
	switch {
	case out.Primary > 0 && out.Secondary > 0:
		out.Kind = models.OutcomeMixed
	case out.Primary > 0 || out.Secondary > 0:
		out.Kind = models.OutcomeSingle
	}
	return out
}

// SplitArticles 把文章节点分为带PDF与仅馆藏两组, 保持文档顺序
// 布局没有PDF标记时所有文章都视为带PDF
func SplitArticles(doc *crawlers.Document, layout *Layout, articles []*html.Node) (pdfBearing, libraryOnly []*html.Node) {
	if layout.PDFMarker == "" {
		return articles, nil
	}
	for _, a := range articles {
		switch {
		case doc.First(a, layout.PDFMarker) != nil:
			pdfBearing = append(pdfBearing, a)
		case layout.LibraryMarker != "" && doc.First(a, layout.LibraryMarker) != nil:
			libraryOnly = append(libraryOnly, a)
		}
	}
	return pdfBearing, libraryOnly
}
