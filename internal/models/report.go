package models

import (
	"encoding/json"
	"time"
)

// CrawlReport 运行报告
type CrawlReport struct {
	RunID     string  `json:"run_id"`
	Variant   Variant `json:"variant"`
	SeedsFile string  `json:"seeds_file"`

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Duration  float64   `json:"duration"` // 秒

	Stats TaskStats `json:"stats"`

	FailedBranches []FailedBranch `json:"failed_branches"`

	StorageRoot    string `json:"storage_root"`
	DiagnosticsDir string `json:"diagnostics_dir"`

	Config CrawlConfig `json:"config"`
}

// FailedBranch 中止的分支
type FailedBranch struct {
	SeedURL string `json:"seed_url"`
	Reason  string `json:"reason"`
}

// ToJSON 序列化为JSON
func (r *CrawlReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
