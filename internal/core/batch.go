package core

import (
	"sort"

	"github.com/RecoveryAshes/JournalCrawler/internal/models"
	"github.com/RecoveryAshes/JournalCrawler/internal/utils"
)

// BranchResult 一个种子分支的结果
type BranchResult struct {
	Seed     models.SeedTarget
	Index    int
	State    State // 结束时所处阶段
	Fetches  int
	Records  int
	Err      error // 分支中止原因, nil表示正常结束
	Duration float64
}

// Failed 分支是否中止
func (r BranchResult) Failed() bool {
	return r.Err != nil
}

// RunSummary 一次运行的汇总
type RunSummary struct {
	Stats   models.TaskStats
	Results []BranchResult
}

// add 追加分支结果
func (s *RunSummary) add(r BranchResult) {
	s.Results = append(s.Results, r)
}

// sortResults 按种子顺序排列(worker完成顺序不确定)
func (s *RunSummary) sortResults() {
	sort.SliceStable(s.Results, func(i, j int) bool {
		return s.Results[i].Index < s.Results[j].Index
	})
}

// FailedBranches 中止的分支
func (s *RunSummary) FailedBranches() []models.FailedBranch {
	var failed []models.FailedBranch
	for _, r := range s.Results {
		if r.Failed() {
			failed = append(failed, models.FailedBranch{SeedURL: r.Seed.URL, Reason: r.Err.Error()})
		}
	}
	return failed
}

// printSummary 打印运行摘要
func (s *RunSummary) printSummary() {
	utils.Info("==================================================")
	utils.Info("📊 运行摘要")
	utils.Info("==================================================")
	utils.Infof("种子数: %d", s.Stats.Seeds)
	utils.Infof("❌ 中止分支: %d", s.Stats.FailedBranches)
	utils.Infof("🌐 页面请求: %d", s.Stats.Fetches)
	utils.Infof("📄 记录: %d", s.Stats.Records)
	if s.Stats.Journals > 0 {
		utils.Infof("📚 期刊元数据: %d", s.Stats.Journals)
	}
	utils.Infof("📦 已保存文件: %d (%.2f MB)", s.Stats.StoredFiles, float64(s.Stats.TotalSize)/(1024*1024))
	utils.Infof("⚠️  下载失败: %d", s.Stats.FailedFiles)
	utils.Infof("📝 诊断记录: %d", s.Stats.Diagnostics)
	utils.Infof("⏱️  总耗时: %.2f秒", s.Stats.Duration)
	utils.Info("==================================================")

	if s.Stats.FailedBranches > 0 {
		utils.Warn("中止的分支:")
		for _, r := range s.Results {
			if r.Failed() {
				utils.Warnf("  - [%s] %s: %v", r.State, r.Seed.URL, r.Err)
			}
		}
	}
}
