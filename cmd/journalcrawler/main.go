package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/RecoveryAshes/JournalCrawler/internal/core"
	"github.com/RecoveryAshes/JournalCrawler/internal/models"
	"github.com/RecoveryAshes/JournalCrawler/internal/utils"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	siteConfig string
	verbose    bool
	logLevel   string

	// HTTP头部参数
	headers        []string // 自定义HTTP请求头
	validateConfig bool     // 验证站点配置文件

	// 遍历参数
	variant   string
	seedsFile string
	mode      string
	minPause  int
	maxPause  int
	noAuth    bool
	threads   int
	outputDir string
	headless  bool

	// 各层级上限, 0表示不限制
	limitJournals int
	limitVolumes  int
	limitIssues   int
	limitArticles int
)

var appConfig *core.Config

var rootCmd = &cobra.Command{
	Use:   "journalcrawler",
	Short: "学术期刊平台爬取工具",
	Long: `JournalCrawler - 通过图书馆代理门户遍历期刊并下载论文与引文

支持的站点变体:
  • portal / portal-discipline   大学图书馆代理门户
  • tandf  / tandf-discipline    Taylor & Francis
  • wiley  / wiley-discipline    Wiley Online Library

下载变体按 期刊 → 卷/年 → 期 → 文章 遍历, 下载PDF与RIS引文;
学科变体抓取学科下全部期刊的元数据, 写入 journals.csv。

示例:
  # 下载T&F期刊, 每本期刊只取最近2卷
  journalcrawler -V tandf -s seeds.txt --limit-volumes 2

  # 抓取门户学科页的期刊列表
  journalcrawler -V portal-discipline -s disciplines.csv

  # 验证站点配置 (请求头与登录凭据)
  journalcrawler --validate-config

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}

		logConfig := config.LogConfig()
		// 命令行参数覆盖配置文件
		if logLevel != "" {
			logConfig.Level = logLevel
		}
		if err := utils.InitLogger(logConfig); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}

		if verbose {
			utils.Info("详细模式已启用")
		}
		appConfig = config
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		headerManager, err := core.NewHeaderManager(siteConfig, headers)
		if err != nil {
			return fmt.Errorf("创建HTTP头部管理器失败: %w", err)
		}

		if validateConfig {
			return runValidateConfig(headerManager)
		}

		// 如果没有提供种子文件, 显示帮助信息
		if seedsFile == "" {
			return cmd.Help()
		}

		if err := ValidateFlags(seedsFile, variant, mode, minPause, maxPause, threads); err != nil {
			return err
		}

		overrides := core.CLIOverrides{
			Variant:     variant,
			Mode:        mode,
			MinPause:    -1,
			MaxPause:    -1,
			NoAuth:      noAuth,
			Concurrency: threads,
			OutputDir:   outputDir,
			Limits: map[models.Level]int{
				models.LevelJournal: limitJournals,
				models.LevelVolume:  limitVolumes,
				models.LevelIssue:   limitIssues,
				models.LevelArticle: limitArticles,
			},
		}
		if cmd.Flags().Changed("min-pause") {
			overrides.MinPause = minPause
		}
		if cmd.Flags().Changed("max-pause") {
			overrides.MaxPause = maxPause
		}
		if cmd.Flags().Changed("headless") {
			overrides.Headless = &headless
		}
		appConfig.MergeCLIFlags(overrides)

		crawler, err := core.NewCrawler(appConfig, seedsFile, headerManager)
		if err != nil {
			return fmt.Errorf("创建爬取器失败: %w", err)
		}

		// Ctrl+C / SIGTERM 取消运行, 已保存的文件与会话保持完整
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		summary, err := crawler.Run(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				utils.Warn("运行被中断")
				return nil
			}
			return fmt.Errorf("运行失败: %w", err)
		}

		if summary.Stats.FailedBranches > 0 {
			utils.Warnf("✨ 运行完成, %d 个分支中止, 详见失败报告", summary.Stats.FailedBranches)
			return nil
		}
		utils.Info("✨ 运行完成!")
		return nil
	},
}

// runValidateConfig 验证站点配置并打印脱敏后的头部
func runValidateConfig(headerManager *core.HeaderManager) error {
	utils.Info("🔍 验证站点配置...")
	if err := headerManager.LoadConfig(); err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}
	if err := headerManager.Validate(); err != nil {
		return fmt.Errorf("配置验证失败: %w", err)
	}

	safeHeaders := headerManager.GetSafeHeaders()
	utils.Info("✅ 配置验证通过!")
	utils.Infof("当前有效的HTTP头部 (%d个):", len(safeHeaders))
	for name, value := range safeHeaders {
		utils.Infof("  %s: %s", name, value)
	}

	creds, err := headerManager.Credentials()
	if err != nil {
		return err
	}
	utils.Infof("登录凭据: %s", creds)
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("JournalCrawler %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
	},
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().StringVar(&siteConfig, "site-config", "", "站点配置文件路径 (请求头与登录凭据, 默认 configs/site.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")

	// HTTP头部参数
	rootCmd.PersistentFlags().StringSliceVarP(&headers, "header", "H", []string{}, "自定义HTTP头部,格式: 'Name: Value',可多次指定")
	rootCmd.PersistentFlags().BoolVar(&validateConfig, "validate-config", false, "验证站点配置文件正确性")

	// 遍历参数
	rootCmd.Flags().StringVarP(&variant, "variant", "V", "", "站点变体 (portal|tandf|wiley|portal-discipline|tandf-discipline|wiley-discipline)")
	rootCmd.Flags().StringVarP(&seedsFile, "seeds", "s", "", "种子文件 (.csv 或每行一个URL)")
	rootCmd.Flags().StringVarP(&mode, "mode", "m", "", "抓取模式 (static|dynamic)")
	rootCmd.Flags().IntVar(&minPause, "min-pause", 1, "兄弟请求之间的最小停顿(秒)")
	rootCmd.Flags().IntVar(&maxPause, "max-pause", 3, "兄弟请求之间的最大停顿(秒)")
	rootCmd.Flags().BoolVar(&noAuth, "no-auth", false, "不检查登录页, 也不保存会话")
	rootCmd.Flags().IntVar(&threads, "threads", 0, "并发worker数 (0表示按系统资源自动确定)")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "", "下载文件根目录")
	rootCmd.Flags().BoolVar(&headless, "headless", true, "无头浏览器模式 (仅dynamic)")

	rootCmd.Flags().IntVar(&limitJournals, "limit-journals", 0, "每个学科最多抓取的期刊数")
	rootCmd.Flags().IntVar(&limitVolumes, "limit-volumes", 0, "每本期刊最多遍历的卷/年数")
	rootCmd.Flags().IntVar(&limitIssues, "limit-issues", 0, "每卷最多遍历的期数")
	rootCmd.Flags().IntVar(&limitArticles, "limit-articles", 0, "每期最多下载的文章数")

	// 添加子命令
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
