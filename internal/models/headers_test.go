package models

import (
	"strings"
	"testing"
)

// TestCliHeadersParse 测试命令行头部解析的边界情况
func TestCliHeadersParse(t *testing.T) {
	tests := []struct {
		name      string
		input     []string
		header    string
		expected  string
		expectErr bool
	}{
		{name: "空数组", input: []string{}},
		{name: "nil数组", input: nil},
		{name: "头部名称前后空格", input: []string{"  User-Agent  : Mozilla/5.0"}, header: "User-Agent", expected: "Mozilla/5.0"},
		{name: "头部值前后空格", input: []string{"User-Agent:  Mozilla/5.0  "}, header: "User-Agent", expected: "Mozilla/5.0"},
		{name: "值中间的空格保留", input: []string{"X-Custom: value with spaces"}, header: "X-Custom", expected: "value with spaces"},
		{name: "值中包含冒号", input: []string{"X-URL: https://example.com:8080/path"}, header: "X-URL", expected: "https://example.com:8080/path"},
		{name: "值中包含等号", input: []string{"X-Equation: 1+1=2"}, header: "X-Equation", expected: "1+1=2"},
		{name: "只有冒号没有值", input: []string{"Cookie:"}, header: "Cookie", expected: ""},
		{name: "多个冒号按第一个分割", input: []string{"Authorization: Bearer: token"}, header: "Authorization", expected: "Bearer: token"},
		{name: "缺少冒号分隔符", input: []string{"User-Agent Mozilla/5.0"}, expectErr: true},
		{name: "只有冒号没有名称", input: []string{":value"}, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers, err := CliHeaders(tt.input).Parse()
			if tt.expectErr {
				if err == nil {
					t.Error("期望错误, 但成功了")
				}
				return
			}
			if err != nil {
				t.Fatalf("不期望错误: %v", err)
			}
			if tt.header == "" {
				if len(headers) != 0 {
					t.Errorf("期望空头部, 得到 %v", headers)
				}
				return
			}
			if got := headers.Get(tt.header); got != tt.expected {
				t.Errorf("%s = %q, 期望 %q", tt.header, got, tt.expected)
			}
		})
	}
}

// TestCredentialsString 凭据输出时密码被隐藏
func TestCredentialsString(t *testing.T) {
	c := Credentials{User: "alice", Pass: "hunter2"}
	if strings.Contains(c.String(), "hunter2") {
		t.Errorf("String()泄露了密码: %s", c.String())
	}
	if c.Empty() {
		t.Error("有用户名和密码时不应为空")
	}
	if !(Credentials{User: "alice"}).Empty() {
		t.Error("缺少密码时应视为空")
	}
}
