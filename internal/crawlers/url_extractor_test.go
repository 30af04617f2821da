package crawlers

import (
	"testing"
)

// TestResolveURL 测试链接解析
func TestResolveURL(t *testing.T) {
	base := "https://www.tandfonline.com/toc/abc/12/3"

	tests := []struct {
		name     string
		href     string
		expected string
	}{
		{"绝对路径", "/doi/pdf/10.1/x", "https://www.tandfonline.com/doi/pdf/10.1/x"},
		{"相对路径", "4", "https://www.tandfonline.com/toc/abc/12/4"},
		{"完整URL", "https://other.org/a", "https://other.org/a"},
		{"带空白", "  /a  ", "https://www.tandfonline.com/a"},
		{"页内锚点", "#top", ""},
		{"javascript链接", "javascript:void(0)", ""},
		{"mailto链接", "mailto:a@b.c", ""},
		{"空链接", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveURL(base, tt.href); got != tt.expected {
				t.Errorf("ResolveURL(%q) = %q, 期望 %q", tt.href, got, tt.expected)
			}
		})
	}
}

// TestFindAnchor 测试按文本查找链接
func TestFindAnchor(t *testing.T) {
	doc := mustParse(t, `<html><body><ul class="menulist">
		<li><a href="/action/journalInformation?journalCode=abc">Journal
			information</a></li>
		<li><a href="/action/journalInformation?show=aimsScope&amp;journalCode=abc">Aims and scope</a></li>
	</ul></body></html>`, "https://www.tandfonline.com/toc/abc/current")

	a, ok := FindAnchor(doc.Root(), doc.URL(), "journal information")
	if !ok {
		t.Fatal("未找到Journal information链接")
	}
	if a.URL != "https://www.tandfonline.com/action/journalInformation?journalCode=abc" {
		t.Errorf("URL = %s", a.URL)
	}

	a, ok = FindAnchor(doc.Root(), doc.URL(), "Aims and scope")
	if !ok || a.URL != "https://www.tandfonline.com/action/journalInformation?show=aimsScope&journalCode=abc" {
		t.Errorf("Aims and scope链接错误: %+v", a)
	}

	if _, ok := FindAnchor(doc.Root(), doc.URL(), "Editorial board"); ok {
		t.Error("不存在的链接不应被找到")
	}
}
