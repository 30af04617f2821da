package core

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/RecoveryAshes/JournalCrawler/internal/models"
)

func siteConfigPath(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "site.yaml")
	if content != "" {
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("写入配置失败: %v", err)
		}
	}
	return path
}

func TestHeaderManager_GetMergedHeaders(t *testing.T) {
	t.Run("默认头部存在", func(t *testing.T) {
		hm, err := NewHeaderManager(siteConfigPath(t, ""), nil)
		if err != nil {
			t.Fatalf("创建HeaderManager失败: %v", err)
		}

		if hm.GetMergedHeaders().Get("User-Agent") == "" {
			t.Error("期望默认User-Agent存在")
		}
	})

	t.Run("命令行头部覆盖默认", func(t *testing.T) {
		hm, err := NewHeaderManager(siteConfigPath(t, ""), []string{"User-Agent: CustomBot/1.0"})
		if err != nil {
			t.Fatalf("创建HeaderManager失败: %v", err)
		}

		if ua := hm.GetMergedHeaders().Get("User-Agent"); ua != "CustomBot/1.0" {
			t.Errorf("期望User-Agent='CustomBot/1.0', 实际='%s'", ua)
		}
	})

	t.Run("命令行覆盖配置文件", func(t *testing.T) {
		path := siteConfigPath(t, "headers:\n  X-Forwarded-For: 10.0.0.1\n  Accept-Language: en-US\n")
		hm, err := NewHeaderManager(path, []string{"Accept-Language: zh-CN"})
		if err != nil {
			t.Fatalf("创建HeaderManager失败: %v", err)
		}

		headers, err := hm.GetHeaders()
		if err != nil {
			t.Fatalf("GetHeaders失败: %v", err)
		}
		if headers.Get("X-Forwarded-For") != "10.0.0.1" {
			t.Error("配置文件头部未生效")
		}
		if headers.Get("Accept-Language") != "zh-CN" {
			t.Errorf("命令行应覆盖配置文件, 得到 %s", headers.Get("Accept-Language"))
		}
	})
}

func TestHeaderManager_GetSafeHeaders(t *testing.T) {
	hm, err := NewHeaderManager(siteConfigPath(t, ""), []string{
		"User-Agent: CustomBot/1.0",
		"Authorization: Bearer secret-token-12345",
		"Cookie: ezproxy=abcdef123456",
	})
	if err != nil {
		t.Fatalf("创建HeaderManager失败: %v", err)
	}

	safe := hm.GetSafeHeaders()
	if safe["User-Agent"] != "CustomBot/1.0" {
		t.Error("普通头部不应该被脱敏")
	}
	if safe["Authorization"] != "Bearer ***" {
		t.Errorf("期望Authorization='Bearer ***', 实际='%s'", safe["Authorization"])
	}
	if strings.Contains(safe["Cookie"], "abcdef123456") {
		t.Errorf("Cookie应该被脱敏, 实际='%s'", safe["Cookie"])
	}
}

func TestHeaderManager_GetHeaders(t *testing.T) {
	t.Run("非法命令行参数返回错误", func(t *testing.T) {
		if _, err := NewHeaderManager(siteConfigPath(t, ""), []string{"InvalidFormat"}); err == nil {
			t.Error("期望返回错误, 但成功了")
		}
	})

	t.Run("禁止头部返回验证错误", func(t *testing.T) {
		hm, err := NewHeaderManager(siteConfigPath(t, ""), []string{"Host: example.com"})
		if err != nil {
			t.Fatalf("创建HeaderManager失败: %v", err)
		}
		if _, err := hm.GetHeaders(); err == nil {
			t.Error("期望返回验证错误, 但成功了")
		}
	})

	t.Run("配置文件不存在时自动生成", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "site.yaml")
		hm, err := NewHeaderManager(path, nil)
		if err != nil {
			t.Fatalf("创建HeaderManager失败: %v", err)
		}
		if _, err := hm.GetHeaders(); err != nil {
			t.Fatalf("GetHeaders失败: %v", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("配置文件应被自动生成: %v", err)
		}
	})
}

func TestHeaderManager_Credentials(t *testing.T) {
	path := siteConfigPath(t, "credentials:\n  user: alice\n  pass: s3cret\n")
	hm, err := NewHeaderManager(path, nil)
	if err != nil {
		t.Fatalf("创建HeaderManager失败: %v", err)
	}

	creds, err := hm.Credentials()
	if err != nil {
		t.Fatalf("读取凭据失败: %v", err)
	}
	if creds.User != "alice" || creds.Pass != "s3cret" {
		t.Errorf("凭据 = %+v", creds)
	}
}

func TestHeaderManager_SiteConfigValidation(t *testing.T) {
	t.Run("站点配置中的Cookie头部被拒绝", func(t *testing.T) {
		path := siteConfigPath(t, "headers:\n  Cookie: ezproxy=abc\n")
		hm, err := NewHeaderManager(path, nil)
		if err != nil {
			t.Fatalf("创建HeaderManager失败: %v", err)
		}
		_, err = hm.GetHeaders()
		var ve *models.ValidationError
		if !errors.As(err, &ve) || ve.Key != "Cookie" {
			t.Fatalf("期望Cookie的验证错误, 实际=%v", err)
		}
		if !strings.Contains(ve.Source, path) {
			t.Errorf("错误来源应指向配置文件, 实际=%q", ve.Source)
		}
	})

	t.Run("只配置了用户名", func(t *testing.T) {
		path := siteConfigPath(t, "credentials:\n  user: alice\n")
		hm, err := NewHeaderManager(path, nil)
		if err != nil {
			t.Fatalf("创建HeaderManager失败: %v", err)
		}
		if _, err := hm.Credentials(); err == nil {
			t.Error("凭据不完整时应返回错误")
		}
	})

	t.Run("并发读取只加载一次", func(t *testing.T) {
		path := siteConfigPath(t, "headers:\n  Accept-Language: de-DE\n")
		hm, err := NewHeaderManager(path, nil)
		if err != nil {
			t.Fatalf("创建HeaderManager失败: %v", err)
		}

		var wg sync.WaitGroup
		errs := make(chan error, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				headers, err := hm.GetHeaders()
				if err == nil && headers.Get("Accept-Language") != "de-DE" {
					err = errors.New("站点配置头部未生效: " + headers.Get("Accept-Language"))
				}
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Error(err)
			}
		}
	})
}
