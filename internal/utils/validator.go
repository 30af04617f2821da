package utils

import (
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/RecoveryAshes/JournalCrawler/internal/models"
)

const (
	// MaxHeaderValueLength 头部值最大长度 (8KB)
	MaxHeaderValueLength = 8192

	// MaxCredentialLength 登录表单字段最大长度
	MaxCredentialLength = 256
)

// managedHeaders 由抓取器或会话维护的头部, 不能在站点配置或命令行中固定
var managedHeaders = map[string]string{
	"host":              "由HTTP客户端根据URL设置",
	"content-length":    "由HTTP客户端计算",
	"transfer-encoding": "由HTTP客户端管理",
	"connection":        "由HTTP客户端管理",
	"content-type":      "登录与引文导出表单提交时自动设置",
	"cookie":            "cookie由会话文件管理, 登录后自动更新",
	"referer":           "每个请求按来源页面设置",
}

// supportedEncodings 下载内容能够解压的编码
var supportedEncodings = map[string]bool{
	"gzip": true, "x-gzip": true, "deflate": true, "br": true, "identity": true, "*": true,
}

var (
	headerNamePattern  = regexp.MustCompile(`^[A-Za-z0-9-]+$`)
	headerValuePattern = regexp.MustCompile(`^[\x20-\x7E\t]*$`)
)

// RequestValidator 校验站点配置: 附加请求头部与代理登录凭据
type RequestValidator struct {
	maxValueLength int
}

// NewRequestValidator 创建校验器
func NewRequestValidator() *RequestValidator {
	return &RequestValidator{maxValueLength: MaxHeaderValueLength}
}

// IsManaged 头部是否由抓取器自行维护
func (v *RequestValidator) IsManaged(name string) bool {
	_, ok := managedHeaders[strings.ToLower(name)]
	return ok
}

// ValidateHeader 校验单个头部, source标明来源便于定位配置
func (v *RequestValidator) ValidateHeader(source, name, value string) error {
	fail := func(field, reason, suggestion string) error {
		return &models.ValidationError{Source: source, Key: name, Field: field, Reason: reason, Suggestion: suggestion}
	}

	if reason, ok := managedHeaders[strings.ToLower(name)]; ok {
		return fail("name", "不允许自定义: "+reason, fmt.Sprintf("移除 '%s'", name))
	}
	if name == "" {
		return fail("name", "头部名称不能为空", "")
	}
	if !headerNamePattern.MatchString(name) {
		return fail("name", "头部名称包含非法字符", "只使用字母、数字和连字符 (如 'Accept-Language')")
	}
	if len(value) > v.maxValueLength {
		return fail("value", fmt.Sprintf("头部值过长: %d 字节 (最大 %d)", len(value), v.maxValueLength), "")
	}
	if !headerValuePattern.MatchString(value) {
		return fail("value", "头部值包含控制字符或非ASCII字符", "")
	}

	if strings.EqualFold(name, "Accept-Encoding") {
		if enc := unsupportedEncoding(value); enc != "" {
			return fail("value", fmt.Sprintf("无法解压的编码 %q", enc), "只使用 gzip, deflate, br")
		}
	}
	return nil
}

// ValidateHeaders 按名称顺序校验, 返回第一个错误
func (v *RequestValidator) ValidateHeaders(source string, headers http.Header) error {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, value := range headers[name] {
			if err := v.ValidateHeader(source, name, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// ValidateCredentials 凭据可以整体留空(不登录), 但不能只填一半
func (v *RequestValidator) ValidateCredentials(source string, creds models.Credentials) error {
	if creds.User == "" && creds.Pass == "" {
		return nil
	}

	fields := []struct{ key, value string }{
		{"credentials.user", creds.User},
		{"credentials.pass", creds.Pass},
	}
	for _, f := range fields {
		fail := func(reason string) error {
			return &models.ValidationError{Source: source, Key: f.key, Field: "value", Reason: reason}
		}
		switch {
		case strings.TrimSpace(f.value) == "":
			return fail("用户名和密码需要同时配置")
		case len(f.value) > MaxCredentialLength:
			return fail(fmt.Sprintf("长度超过 %d", MaxCredentialLength))
		case strings.IndexFunc(f.value, unicode.IsControl) >= 0:
			return fail("包含控制字符")
		}
	}
	return nil
}

// unsupportedEncoding 返回Accept-Encoding中第一个不支持的编码
func unsupportedEncoding(value string) string {
	for _, part := range strings.Split(value, ",") {
		enc := strings.ToLower(strings.TrimSpace(part))
		if i := strings.IndexByte(enc, ';'); i >= 0 {
			enc = strings.TrimSpace(enc[:i])
		}
		if enc != "" && !supportedEncodings[enc] {
			return enc
		}
	}
	return ""
}
