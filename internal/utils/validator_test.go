package utils

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/RecoveryAshes/JournalCrawler/internal/models"
)

func TestRequestValidator_ValidateHeader(t *testing.T) {
	validator := NewRequestValidator()

	tests := []struct {
		name        string
		headerName  string
		headerValue string
		field       string // 期望出错的部分, 为空表示合法
	}{
		{"合法头部", "User-Agent", "Mozilla/5.0", ""},
		{"合法-空值", "X-Empty", "", ""},
		{"合法-编码列表", "Accept-Encoding", "gzip, deflate, br;q=0.8", ""},
		{"托管头部-Host", "Host", "example.com", "name"},
		{"托管头部-不区分大小写", "cookie", "ezproxy=abc", "name"},
		{"托管头部-Referer", "Referer", "https://proxy.example.org/", "name"},
		{"托管头部-Content-Type", "Content-Type", "application/x-www-form-urlencoded", "name"},
		{"非法名称-空格", "User Agent", "v", "name"},
		{"非法名称-下划线", "User_Agent", "v", "name"},
		{"非法名称-空", "", "v", "name"},
		{"非法值-控制字符", "X-Bad", "value\x00with\x01null", "value"},
		{"非法值-超长", "X-Long", strings.Repeat("a", MaxHeaderValueLength+1), "value"},
		{"无法解压的编码", "Accept-Encoding", "gzip, zstd", "value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateHeader("命令行", tt.headerName, tt.headerValue)
			if tt.field == "" {
				if err != nil {
					t.Errorf("期望无错误, 实际错误=%v", err)
				}
				return
			}
			var ve *models.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("期望ValidationError, 实际=%v", err)
			}
			if ve.Field != tt.field || ve.Source != "命令行" {
				t.Errorf("Field=%q Source=%q, 期望Field=%q", ve.Field, ve.Source, tt.field)
			}
		})
	}
}

func TestRequestValidator_IsManaged(t *testing.T) {
	validator := NewRequestValidator()

	for _, name := range []string{"Host", "Cookie", "referer", "Content-Length"} {
		if !validator.IsManaged(name) {
			t.Errorf("%s 应由抓取器维护", name)
		}
	}
	for _, name := range []string{"User-Agent", "Accept-Language", "X-Forwarded-For"} {
		if validator.IsManaged(name) {
			t.Errorf("%s 应允许配置", name)
		}
	}
}

func TestRequestValidator_ValidateHeaders(t *testing.T) {
	validator := NewRequestValidator()

	t.Run("合法头部", func(t *testing.T) {
		headers := http.Header{
			"User-Agent":      []string{"Mozilla/5.0"},
			"Accept-Language": []string{"en-US"},
		}
		if err := validator.ValidateHeaders("站点配置", headers); err != nil {
			t.Errorf("期望无错误, 实际错误=%v", err)
		}
	})

	t.Run("按名称顺序返回第一个错误", func(t *testing.T) {
		headers := http.Header{
			"Referer": []string{"https://a/"},
			"Cookie":  []string{"s=1"},
		}
		err := validator.ValidateHeaders("站点配置", headers)
		var ve *models.ValidationError
		if !errors.As(err, &ve) || ve.Key != "Cookie" {
			t.Fatalf("期望Cookie的验证错误, 实际=%v", err)
		}
		if !strings.Contains(err.Error(), "站点配置") {
			t.Errorf("错误信息应包含来源: %v", err)
		}
	})
}

func TestRequestValidator_ValidateCredentials(t *testing.T) {
	validator := NewRequestValidator()

	tests := []struct {
		name    string
		creds   models.Credentials
		wantKey string // 为空表示合法
	}{
		{"完全留空", models.Credentials{}, ""},
		{"完整凭据", models.Credentials{User: "alice", Pass: "s3cret"}, ""},
		{"只有用户名", models.Credentials{User: "alice"}, "credentials.pass"},
		{"只有密码", models.Credentials{Pass: "s3cret"}, "credentials.user"},
		{"用户名只有空白", models.Credentials{User: "  ", Pass: "s3cret"}, "credentials.user"},
		{"密码含换行", models.Credentials{User: "alice", Pass: "s3\ncret"}, "credentials.pass"},
		{"用户名过长", models.Credentials{User: strings.Repeat("a", MaxCredentialLength+1), Pass: "x"}, "credentials.user"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateCredentials("site.yaml", tt.creds)
			if tt.wantKey == "" {
				if err != nil {
					t.Errorf("期望无错误, 实际错误=%v", err)
				}
				return
			}
			var ve *models.ValidationError
			if !errors.As(err, &ve) || ve.Key != tt.wantKey {
				t.Fatalf("期望%s的验证错误, 实际=%v", tt.wantKey, err)
			}
			if strings.Contains(err.Error(), "s3") {
				t.Errorf("错误信息不应包含密码: %v", err)
			}
		})
	}
}

func TestHeaderRedactor_RedactCookies(t *testing.T) {
	redactor := NewHeaderRedactor()

	got := redactor.RedactCookies([]models.Cookie{
		{Name: "ezproxy", Value: "abcdefghijkl", Domain: "proxy.example.org"},
		{Name: "lang", Value: "en", Domain: "proxy.example.org"},
	})

	if got["proxy.example.org/ezproxy"] != "abcd***" {
		t.Errorf("长cookie值应保留前4位, 得到 %q", got["proxy.example.org/ezproxy"])
	}
	if got["proxy.example.org/lang"] != "***" {
		t.Errorf("短cookie值应完全隐藏, 得到 %q", got["proxy.example.org/lang"])
	}
}
