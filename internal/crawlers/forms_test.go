package crawlers

import (
	"net/http"
	"testing"
)

const loginPage = `<html><body>
<form id="mc1" action="/login" method="post">
  <input type="hidden" name="url" value="https://www.wiley.com/">
  <input type="text" name="user" value="">
  <input type="password" name="pass">
  <input type="checkbox" name="remember" value="1">
  <input type="checkbox" name="agree" checked>
  <select name="realm"><option value="a">A</option><option value="b" selected>B</option></select>
  <input type="submit" name="login" value="Login">
  <input type="submit" name="cancel" value="Cancel">
  <input type="text" name="disabled" value="x" disabled>
</form>
</body></html>`

// TestExtractForm 测试表单字段收集
func TestExtractForm(t *testing.T) {
	doc := mustParse(t, loginPage, "https://ezproxy.example.edu/login?qurl=abc")

	form, err := ExtractForm(doc, `//form[@id="mc1" and @action="/login"]`)
	if err != nil {
		t.Fatalf("提取表单失败: %v", err)
	}

	if form.Action != "https://ezproxy.example.edu/login" {
		t.Errorf("Action = %s", form.Action)
	}
	if form.Method != http.MethodPost {
		t.Errorf("Method = %s, 期望 POST", form.Method)
	}

	checks := map[string]string{
		"url":    "https://www.wiley.com/",
		"user":   "",
		"pass":   "",
		"agree":  "on",
		"realm":  "b",
		"login":  "Login",
	}
	for name, want := range checks {
		if got := form.Fields.Get(name); got != want {
			t.Errorf("字段 %s = %q, 期望 %q", name, got, want)
		}
	}
	if form.Fields.Has("remember") {
		t.Error("未勾选的checkbox不应提交")
	}
	if form.Fields.Has("cancel") {
		t.Error("只应提交第一个submit按钮")
	}
	if form.Fields.Has("disabled") {
		t.Error("禁用字段不应提交")
	}
}

// TestFormRequest 测试生成提交请求
func TestFormRequest(t *testing.T) {
	doc := mustParse(t, loginPage, "https://ezproxy.example.edu/login")
	form, err := ExtractForm(doc, `//form[@id="mc1"]`)
	if err != nil {
		t.Fatalf("提取表单失败: %v", err)
	}

	req := form.Request(map[string]string{"user": "alice", "pass": "secret"})
	if req.Method() != http.MethodPost {
		t.Errorf("Method = %s", req.Method())
	}
	if req.Form.Get("user") != "alice" || req.Form.Get("pass") != "secret" {
		t.Errorf("凭据未覆盖: %v", req.Form)
	}
	if form.Fields.Get("user") != "" {
		t.Error("Request不应修改原表单")
	}
}

// TestExtractFormGet GET表单的字段进入查询串
func TestExtractFormGet(t *testing.T) {
	doc := mustParse(t, `<form action="/search"><input name="q" value="a b"></form>`, "https://example.com/x")
	form, err := ExtractForm(doc, `//form`)
	if err != nil {
		t.Fatalf("提取表单失败: %v", err)
	}
	req := form.Request(nil)
	if req.Form != nil {
		t.Error("GET表单不应有Form")
	}
	if req.URL != "https://example.com/search?q=a+b" {
		t.Errorf("URL = %s", req.URL)
	}
}

// TestExtractFormMissing 找不到表单时返回错误
func TestExtractFormMissing(t *testing.T) {
	doc := mustParse(t, `<html><div id="mc1"></div></html>`, "https://example.com/")
	if _, err := ExtractForm(doc, `//form[@id="mc1"]`); err == nil {
		t.Error("期望错误")
	}
	if _, err := ExtractForm(doc, `//div[@id="mc1"]`); err == nil {
		t.Error("非form节点应返回错误")
	}
}
