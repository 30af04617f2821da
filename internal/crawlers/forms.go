package crawlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Form 从页面读取的HTML表单
type Form struct {
	Action string // 绝对URL
	Method string
	Fields url.Values
}

// ExtractForm 按XPath定位表单并收集字段。
// 与浏览器提交时一致: 未勾选的checkbox/radio不提交, select取选中项或第一项,
// 只提交第一个具名的submit按钮。
func ExtractForm(doc *Document, formExpr string) (*Form, error) {
	node := doc.First(nil, formExpr)
	if node == nil {
		return nil, fmt.Errorf("未找到表单: %s", formExpr)
	}
	if node.Type != html.ElementNode || node.Data != "form" {
		return nil, fmt.Errorf("节点不是表单: <%s>", node.Data)
	}

	sel := goquery.NewDocumentFromNode(node).Selection

	action := doc.URL()
	if raw, ok := sel.Attr("action"); ok && strings.TrimSpace(raw) != "" {
		if abs := doc.ResolveURL(raw); abs != "" {
			action = abs
		}
	}

	method := strings.ToUpper(strings.TrimSpace(sel.AttrOr("method", http.MethodGet)))
	if method != http.MethodPost {
		method = http.MethodGet
	}

	fields := url.Values{}
	submitted := false

	sel.Find("input[name], select[name], textarea[name]").Each(func(_ int, s *goquery.Selection) {
		name := s.AttrOr("name", "")
		if name == "" {
			return
		}
		if _, disabled := s.Attr("disabled"); disabled {
			return
		}

		switch goquery.NodeName(s) {
		case "select":
			opt := s.Find("option[selected]").First()
			if opt.Length() == 0 {
				opt = s.Find("option").First()
			}
			if opt.Length() > 0 {
				fields.Add(name, opt.AttrOr("value", strings.TrimSpace(opt.Text())))
			}
		case "textarea":
			fields.Add(name, s.Text())
		default:
			typ := strings.ToLower(s.AttrOr("type", "text"))
			value := s.AttrOr("value", "")
			switch typ {
			case "checkbox", "radio":
				if _, checked := s.Attr("checked"); checked {
					if value == "" {
						value = "on"
					}
					fields.Add(name, value)
				}
			case "submit", "image":
				if !submitted {
					fields.Add(name, value)
					submitted = true
				}
			case "button", "reset", "file":
			default:
				fields.Add(name, value)
			}
		}
	})

	return &Form{Action: action, Method: method, Fields: fields}, nil
}

// Request 生成提交请求, overrides覆盖同名字段
func (f *Form) Request(overrides map[string]string) FetchRequest {
	values := url.Values{}
	for k, v := range f.Fields {
		values[k] = append([]string(nil), v...)
	}
	for k, v := range overrides {
		values.Set(k, v)
	}

	if f.Method == http.MethodPost {
		return FetchRequest{URL: f.Action, Form: values}
	}

	target := f.Action
	if u, err := url.Parse(f.Action); err == nil {
		q := u.Query()
		for k, v := range values {
			q[k] = v
		}
		u.RawQuery = q.Encode()
		target = u.String()
	}
	return FetchRequest{URL: target}
}
