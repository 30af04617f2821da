package crawlers

import (
	"bytes"
	"fmt"
	"strconv"
	"sync"

	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
)

// 编译后的XPath表达式缓存, 同一布局的表达式会被反复使用
var exprCache sync.Map

func compile(expr string) (*xpath.Expr, error) {
	if v, ok := exprCache.Load(expr); ok {
		return v.(*xpath.Expr), nil
	}
	e, err := xpath.Compile(expr)
	if err != nil {
		return nil, err
	}
	exprCache.Store(expr, e)
	return e, nil
}

// Document 已解析的HTML页面
type Document struct {
	root    *html.Node
	pageURL string
}

// ParseDocument 解析HTML, pageURL用于解析相对链接
func ParseDocument(body []byte, pageURL string) (*Document, error) {
	root, err := htmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("解析HTML失败: %w", err)
	}
	return &Document{root: root, pageURL: pageURL}, nil
}

// Root 文档根节点
func (d *Document) Root() *html.Node {
	return d.root
}

// URL 页面URL
func (d *Document) URL() string {
	return d.pageURL
}

// Select 从根节点查询
func (d *Document) Select(expr string) []*html.Node {
	return d.SelectFrom(d.root, expr)
}

// SelectFrom 以node为上下文查询; 表达式无效时记录警告并返回空
func (d *Document) SelectFrom(node *html.Node, expr string) []*html.Node {
	if node == nil {
		node = d.root
	}
	e, err := compile(expr)
	if err != nil {
		log.Warn().Err(err).Str("xpath", expr).Msg("XPath表达式无效")
		return nil
	}
	return htmlquery.QuerySelectorAll(node, e)
}

// First 第一个匹配节点, 没有时返回nil
func (d *Document) First(node *html.Node, expr string) *html.Node {
	nodes := d.SelectFrom(node, expr)
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

// Exists 是否存在匹配节点
func (d *Document) Exists(expr string) bool {
	return d.First(nil, expr) != nil
}

// Value 计算表达式并返回字符串值。
// 节点集取第一个节点的字符串值, string()/count()等函数直接返回其结果。
func (d *Document) Value(node *html.Node, expr string) string {
	if node == nil {
		node = d.root
	}
	e, err := compile(expr)
	if err != nil {
		log.Warn().Err(err).Str("xpath", expr).Msg("XPath表达式无效")
		return ""
	}

	switch v := e.Evaluate(htmlquery.CreateXPathNavigator(node)).(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case *xpath.NodeIterator:
		if v.MoveNext() {
			return v.Current().Value()
		}
	}
	return ""
}

// Values 所有匹配节点的字符串值, 保持文档顺序
func (d *Document) Values(node *html.Node, expr string) []string {
	nodes := d.SelectFrom(node, expr)
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, nodeValue(n))
	}
	return out
}

// ResolveURL 以页面URL为基准解析href
func (d *Document) ResolveURL(href string) string {
	return ResolveURL(d.pageURL, href)
}

// Links 表达式命中的链接(属性节点或带href的元素), 已解析为绝对URL
func (d *Document) Links(node *html.Node, expr string) []string {
	var links []string
	for _, n := range d.SelectFrom(node, expr) {
		href := Attr(n, "href")
		if href == "" {
			href = nodeValue(n)
		}
		if abs := d.ResolveURL(href); abs != "" {
			links = append(links, abs)
		}
	}
	return links
}

// Text 节点的全部文本
func Text(n *html.Node) string {
	if n == nil {
		return ""
	}
	return htmlquery.InnerText(n)
}

// Attr 节点属性值
func Attr(n *html.Node, name string) string {
	if n == nil {
		return ""
	}
	return htmlquery.SelectAttr(n, name)
}

// nodeValue 节点的字符串值。htmlquery把属性节点包装成只含一个文本子节点的元素,
// 因此InnerText同时适用于属性与元素。
func nodeValue(n *html.Node) string {
	if n == nil {
		return ""
	}
	return htmlquery.InnerText(n)
}
