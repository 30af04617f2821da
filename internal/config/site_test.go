package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/RecoveryAshes/JournalCrawler/internal/models"
)

func TestSiteConfigLoader_LoadConfig(t *testing.T) {
	t.Run("首次运行自动生成配置文件", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "configs", "site.yaml")
		loader := NewSiteConfigLoader(configPath)

		cfg, err := loader.LoadConfig()
		if err != nil {
			t.Fatalf("加载配置失败: %v", err)
		}

		info, err := os.Stat(configPath)
		if err != nil {
			t.Fatal("配置文件应该被自动生成")
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("模板权限 = %v, want 0600", info.Mode().Perm())
		}
		if cfg.Headers == nil {
			t.Fatal("Headers map应该被初始化")
		}
		if !cfg.Credentials.Empty() {
			t.Errorf("模板凭据应为空, 得到 %s", cfg.Credentials)
		}
	})

	t.Run("加载头部和凭据", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "site.yaml")
		content := `headers:
  User-Agent: "Test Bot/1.0"
credentials:
  user: "alice"
  pass: "secret"
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("写入测试配置失败: %v", err)
		}

		cfg, err := NewSiteConfigLoader(configPath).LoadConfig()
		if err != nil {
			t.Fatalf("加载配置失败: %v", err)
		}

		// viper会将键名转换为小写
		if cfg.Headers["user-agent"] != "Test Bot/1.0" {
			t.Errorf("期望 user-agent='Test Bot/1.0', 实际='%s'", cfg.Headers["user-agent"])
		}
		if cfg.Credentials.User != "alice" || cfg.Credentials.Pass != "secret" {
			t.Errorf("凭据不匹配: %+v", cfg.Credentials)
		}
		if cfg.Credentials.String() != "alice:***" {
			t.Errorf("凭据输出未脱敏: %s", cfg.Credentials)
		}
	})

	t.Run("环境变量覆盖凭据", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "site.yaml")
		if err := os.WriteFile(configPath, []byte("credentials:\n  user: alice\n"), 0600); err != nil {
			t.Fatalf("写入测试配置失败: %v", err)
		}
		t.Setenv("JOURNALCRAWLER_CREDENTIALS_PASS", "from-env")

		cfg, err := NewSiteConfigLoader(configPath).LoadConfig()
		if err != nil {
			t.Fatalf("加载配置失败: %v", err)
		}
		if cfg.Credentials.Pass != "from-env" {
			t.Errorf("期望环境变量覆盖密码, 实际='%s'", cfg.Credentials.Pass)
		}
	})

	t.Run("YAML格式错误返回ConfigError", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "site.yaml")
		bad := "headers:\n  User-Agent: \"Test Bot\n  X-Custom: missing quote\n"
		if err := os.WriteFile(configPath, []byte(bad), 0600); err != nil {
			t.Fatalf("写入测试配置失败: %v", err)
		}

		_, err := NewSiteConfigLoader(configPath).LoadConfig()
		var configErr *models.ConfigError
		if !errors.As(err, &configErr) {
			t.Fatalf("期望ConfigError, 得到 %v", err)
		}
	})

	t.Run("配置文件过大", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "site.yaml")
		big := make([]byte, MaxConfigFileSize+1)
		for i := range big {
			big[i] = '#'
		}
		if err := os.WriteFile(configPath, big, 0600); err != nil {
			t.Fatalf("写入测试配置失败: %v", err)
		}

		if _, err := NewSiteConfigLoader(configPath).LoadConfig(); err == nil {
			t.Error("期望文件过大错误")
		}
	})
}

func TestNewSiteConfigLoader_DefaultPath(t *testing.T) {
	if got := NewSiteConfigLoader("").Path(); got != DefaultConfigFile {
		t.Errorf("Path() = %s, want %s", got, DefaultConfigFile)
	}
}
