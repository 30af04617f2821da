package crawlers

import (
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
)

// Anchor 页面中的一个链接
type Anchor struct {
	Text string
	URL  string
}

// ResolveURL 将href解析为绝对URL。
// 空链接、页内锚点、javascript:与mailto:返回空字符串。
func ResolveURL(baseURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") {
		return ""
	}

	linkURL, err := url.Parse(href)
	if err != nil {
		log.Debug().Str("href", href).Msg("链接格式无效")
		return ""
	}
	base, err := url.Parse(baseURL)
	if err != nil || baseURL == "" {
		if linkURL.IsAbs() {
			return linkURL.String()
		}
		return ""
	}

	abs := base.ResolveReference(linkURL)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	return abs.String()
}

// Anchors 按文档顺序提取node下所有带href的<a>, 不去重
func Anchors(node *html.Node, baseURL string) []Anchor {
	var anchors []Anchor
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				if abs := ResolveURL(baseURL, attr.Val); abs != "" {
					anchors = append(anchors, Anchor{
						Text: strings.Join(strings.Fields(Text(n)), " "),
						URL:  abs,
					})
				}
				break
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if node != nil {
		walk(node)
	}
	return anchors
}

// FindAnchor 第一个文本包含text的链接(不区分大小写)
func FindAnchor(node *html.Node, baseURL, text string) (Anchor, bool) {
	needle := strings.ToLower(text)
	for _, a := range Anchors(node, baseURL) {
		if strings.Contains(strings.ToLower(a.Text), needle) {
			return a, true
		}
	}
	return Anchor{}, false
}
