package core

import (
	"testing"

	"github.com/RecoveryAshes/JournalCrawler/internal/crawlers"
	"github.com/RecoveryAshes/JournalCrawler/internal/models"
)

func TestClassifyListing(t *testing.T) {
	tests := []struct {
		name        string
		pdf, lib    int
		wantKind    models.OutcomeKind
		primaryOnly bool
		secondary   bool
	}{
		{"空列表", 0, 0, models.OutcomeEmpty, false, false},
		{"只有PDF", 3, 0, models.OutcomeSingle, true, false},
		{"只有馆藏", 0, 2, models.OutcomeSingle, false, true},
		{"混合", 2, 1, models.OutcomeMixed, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := ClassifyListing(tt.pdf, tt.lib)
			if out.Kind != tt.wantKind {
				t.Errorf("Kind = %v, 期望 %v", out.Kind, tt.wantKind)
			}
			if out.PrimaryOnly() != tt.primaryOnly {
				t.Errorf("PrimaryOnly = %v", out.PrimaryOnly())
			}
			if out.SecondaryOnly() != tt.secondary {
				t.Errorf("SecondaryOnly = %v", out.SecondaryOnly())
			}
			if out.Level != models.LevelIssue {
				t.Errorf("Level = %v", out.Level)
			}
		})
	}
}

func TestClassifyArticle(t *testing.T) {
	tests := []struct {
		name                 string
		pdf, citation        string
		missingPDF, missingC bool
		kind                 models.OutcomeKind
	}{
		{"两者都有", "p", "c", false, false, models.OutcomeMixed},
		{"只有PDF", "p", "", false, true, models.OutcomeSingle},
		{"只有引文", "", "c", true, false, models.OutcomeSingle},
		{"都没有", "", "", true, true, models.OutcomeEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := ClassifyArticle(tt.pdf, tt.citation)
			if out.MissingPDF != tt.missingPDF || out.MissingCitation != tt.missingC {
				t.Errorf("Missing = (%v, %v), 期望 (%v, %v)", out.MissingPDF, out.MissingCitation, tt.missingPDF, tt.missingC)
			}
			if out.Kind != tt.kind {
				t.Errorf("Kind = %v, 期望 %v", out.Kind, tt.kind)
			}
		})
	}
}

func TestSplitArticles(t *testing.T) {
	body := `<div id="result-list"><ol id="toc">
<li class="journal-item row-1"><div class="journal-result"><h4><a href="/a/1"><span class="article-title">One</span></a></h4>
  <div class="clear links"><a href="/p/1">PDF Download</a></div></div></li>
<li class="journal-item row-2"><div class="journal-result"><h4><a href="/a/2"><span class="article-title">Two</span></a></h4>
  <div class="clear links"><a href="/l/2">Find Full-Text @ My Library</a></div></div></li>
<li class="journal-item row-3"><div class="journal-result"><h4><a href="/a/3"><span class="article-title">Three</span></a></h4>
  <div class="clear links"><a href="/p/3">PDF Download</a></div></div></li>
<li class="journal-item row-4"><div class="journal-result"><h4><a href="/a/4"><span class="article-title">Four</span></a></h4></div></li>
</ol></div>`
	doc, err := crawlers.ParseDocument([]byte(body), "https://proxy.example.edu/journal/1")
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	layout, _ := LayoutFor(models.VariantPortal)

	articles := doc.Select(layout.Articles)
	if len(articles) != 4 {
		t.Fatalf("期望4篇文章, 实际 %d", len(articles))
	}

	pdf, lib := SplitArticles(doc, layout, articles)
	if len(pdf) != 2 || len(lib) != 1 {
		t.Fatalf("期望2篇PDF与1篇馆藏, 实际 %d/%d", len(pdf), len(lib))
	}
	if title := doc.Value(pdf[1], layout.ArticleTitle); title != "Three" {
		t.Errorf("文档顺序错误: %q", title)
	}

	t.Run("没有PDF标记时全部视为带PDF", func(t *testing.T) {
		l := *layout
		l.PDFMarker = ""
		pdf, lib := SplitArticles(doc, &l, articles)
		if len(pdf) != 4 || len(lib) != 0 {
			t.Errorf("期望4/0, 实际 %d/%d", len(pdf), len(lib))
		}
	})

	if out := ClassifyChildren(models.LevelVolume, nil); out.Kind != models.OutcomeEmpty {
		t.Errorf("空子节点应为Empty, 实际 %v", out.Kind)
	}
}
