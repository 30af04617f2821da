package core

import (
	"sync/atomic"

	"github.com/RecoveryAshes/JournalCrawler/internal/models"
)

// Stats 运行期计数器, 多个worker并发累加
type Stats struct {
	seeds          atomic.Int64
	failedBranches atomic.Int64
	fetches        atomic.Int64
	records        atomic.Int64
	journals       atomic.Int64
	storedFiles    atomic.Int64
	failedFiles    atomic.Int64
	totalSize      atomic.Int64
}

// Snapshot 当前计数
func (s *Stats) Snapshot() models.TaskStats {
	return models.TaskStats{
		Seeds:          int(s.seeds.Load()),
		FailedBranches: int(s.failedBranches.Load()),
		Fetches:        int(s.fetches.Load()),
		Records:        int(s.records.Load()),
		Journals:       int(s.journals.Load()),
		StoredFiles:    int(s.storedFiles.Load()),
		FailedFiles:    int(s.failedFiles.Load()),
		TotalSize:      s.totalSize.Load(),
	}
}
