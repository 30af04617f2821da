package models

import (
	"encoding/json"
	"net/http"
	"time"
)

// Cookie 会话中的单个cookie
type Cookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Domain   string    `json:"domain,omitempty"`
	Path     string    `json:"path,omitempty"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure,omitempty"`
	HTTPOnly bool      `json:"http_only,omitempty"`
}

// key cookie的唯一标识 (domain, path, name)
func (c Cookie) key() string {
	return c.Domain + "\x00" + c.Path + "\x00" + c.Name
}

// Session 持久化的认证会话
type Session struct {
	Cookies   []Cookie  `json:"cookies"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Empty 会话中没有任何cookie
func (s *Session) Empty() bool {
	return s == nil || len(s.Cookies) == 0
}

// Merge 返回合并后的新会话,同一(domain, path, name)的cookie以新值为准
// 接收者不会被修改
func (s *Session) Merge(cookies []Cookie) *Session {
	merged := &Session{UpdatedAt: time.Now()}

	index := make(map[string]int)
	if s != nil {
		for _, c := range s.Cookies {
			index[c.key()] = len(merged.Cookies)
			merged.Cookies = append(merged.Cookies, c)
		}
	}
	for _, c := range cookies {
		if i, ok := index[c.key()]; ok {
			merged.Cookies[i] = c
			continue
		}
		index[c.key()] = len(merged.Cookies)
		merged.Cookies = append(merged.Cookies, c)
	}
	return merged
}

// Snapshot 复制一份cookie列表
func (s *Session) Snapshot() []Cookie {
	if s == nil {
		return nil
	}
	out := make([]Cookie, len(s.Cookies))
	copy(out, s.Cookies)
	return out
}

// ToJSON 序列化为JSON
func (s *Session) ToJSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// FromJSON 从JSON反序列化
func (s *Session) FromJSON(data []byte) error {
	return json.Unmarshal(data, s)
}

// ToHTTPCookies 转换为net/http的cookie
func ToHTTPCookies(cookies []Cookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		})
	}
	return out
}

// FromHTTPCookies 从net/http的cookie转换
func FromHTTPCookies(cookies []*http.Cookie, defaultDomain string) []Cookie {
	out := make([]Cookie, 0, len(cookies))
	for _, c := range cookies {
		domain := c.Domain
		if domain == "" {
			domain = defaultDomain
		}
		out = append(out, Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   domain,
			Path:     c.Path,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HTTPOnly: c.HttpOnly,
		})
	}
	return out
}
