package main

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/go-rod/rod/lib/launcher"
)

func main() {
	fmt.Println("==============================================")
	fmt.Println("  JournalCrawler 环境验证")
	fmt.Println("==============================================")
	fmt.Println()

	allOK := true

	// 检查Go版本
	goVersion := runtime.Version()
	fmt.Printf("✅ Go版本: %s\n", goVersion)
	if !strings.HasPrefix(goVersion, "go1.23") && !strings.HasPrefix(goVersion, "go1.24") {
		fmt.Println("⚠️  警告: 建议使用Go 1.23+版本")
	}

	// 检查操作系统
	fmt.Printf("✅ 操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)

	// go-sqlite3需要cgo
	if cgo := strings.TrimSpace(getCommandOutput("go", "env", "CGO_ENABLED")); cgo == "1" {
		fmt.Println("✅ CGO已启用 (目录数据库可用)")
	} else {
		fmt.Println("⚠️  CGO未启用 - 目录数据库不可用, 请设置 storage.catalog 为空或启用CGO")
	}

	// 检查浏览器 (dynamic模式)
	if path, ok := launcher.LookPath(); ok {
		fmt.Printf("✅ 浏览器: %s\n", path)
	} else {
		fmt.Println("⚠️  未找到Chromium/Chrome - dynamic模式首次运行时会自动下载")
	}

	// 检查项目依赖
	fmt.Println()
	fmt.Println("检查Go模块依赖...")
	if _, err := os.Stat("go.mod"); err == nil {
		fmt.Println("✅ go.mod文件存在")

		fmt.Println("正在下载依赖...")
		cmd := exec.Command("go", "mod", "download")
		if err := cmd.Run(); err != nil {
			fmt.Printf("❌ go mod download失败: %v\n", err)
			allOK = false
		} else {
			fmt.Println("✅ 依赖下载完成")
		}
	} else {
		fmt.Println("❌ go.mod文件不存在")
		allOK = false
	}

	// 检查项目结构
	fmt.Println()
	fmt.Println("检查项目结构...")
	requiredDirs := []string{
		"cmd/journalcrawler",
		"internal/config",
		"internal/core",
		"internal/crawlers",
		"internal/utils",
		"internal/models",
	}
	for _, dir := range requiredDirs {
		if _, err := os.Stat(dir); err == nil {
			fmt.Printf("✅ %s/\n", dir)
		} else {
			fmt.Printf("❌ %s/ 不存在\n", dir)
			allOK = false
		}
	}

	// 配置文件缺失时使用默认值, 不算失败
	fmt.Println()
	fmt.Println("检查配置文件...")
	for _, file := range []string{"configs/config.yaml", "configs/site.yaml"} {
		if _, err := os.Stat(file); err == nil {
			fmt.Printf("✅ %s\n", file)
		} else {
			fmt.Printf("⚠️  %s 不存在, 将使用默认值\n", file)
		}
	}
	if os.Getenv("JOURNALCRAWLER_CREDENTIALS_USER") != "" {
		fmt.Println("✅ 已通过环境变量配置登录账号")
	}

	fmt.Println()
	fmt.Println("==============================================")
	if allOK {
		fmt.Println("✅ 环境验证通过!")
		fmt.Println()
		fmt.Println("下一步:")
		fmt.Println("  1. 运行 'go build -o journalcrawler ./cmd/journalcrawler' 构建项目")
		fmt.Println("  2. 运行 './journalcrawler --validate-config' 检查站点配置")
		fmt.Println("  3. 运行 './journalcrawler --help' 查看帮助")
		os.Exit(0)
	}
	fmt.Println("❌ 环境验证失败,请解决上述问题。")
	os.Exit(1)
}

// getCommandOutput 获取命令输出
func getCommandOutput(name string, args ...string) string {
	output, err := exec.Command(name, args...).Output()
	if err != nil {
		return ""
	}
	return string(output)
}
