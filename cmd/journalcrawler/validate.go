package main

import (
	"fmt"
	"os"

	"github.com/RecoveryAshes/JournalCrawler/internal/models"
)

// ValidateFlags 验证命令行标志; 空字符串表示沿用配置文件
func ValidateFlags(
	seedsFile string,
	variant string,
	mode string,
	minPause int,
	maxPause int,
	threads int,
) error {
	if err := ValidateSeedsFile(seedsFile); err != nil {
		return err
	}

	if variant != "" && !models.Variant(variant).Valid() {
		return fmt.Errorf("无效的站点变体: %s (有效值: portal, tandf, wiley, portal-discipline, tandf-discipline, wiley-discipline)", variant)
	}

	if mode != "" && mode != string(models.ModeStatic) && mode != string(models.ModeDynamic) {
		return fmt.Errorf("无效的抓取模式: %s (有效值: static, dynamic)", mode)
	}

	// 验证停顿区间
	if minPause < 0 || maxPause < 0 {
		return fmt.Errorf("停顿时间不能为负数,当前值: %d-%d", minPause, maxPause)
	}
	if minPause > maxPause {
		return fmt.Errorf("最小停顿不能大于最大停顿,当前值: %d-%d", minPause, maxPause)
	}

	// 验证并发数
	if threads < 0 || threads > 64 {
		return fmt.Errorf("并发数必须在0-64之间,当前值: %d", threads)
	}

	return nil
}

// ValidateSeedsFile 验证种子文件存在且不是目录
func ValidateSeedsFile(path string) error {
	if path == "" {
		return fmt.Errorf("种子文件路径不能为空")
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("无法读取种子文件: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("种子文件是目录: %s", path)
	}
	return nil
}
