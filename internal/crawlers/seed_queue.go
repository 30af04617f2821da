package crawlers

import (
	"context"
	"fmt"
	"sync"

	"github.com/RecoveryAshes/JournalCrawler/internal/models"
)

// SeedQueue 种子队列
// 职责: 把种子分发给worker, 支持并发安全的Push/Pop与去重
type SeedQueue struct {
	pending chan models.SeedItem

	// 已入队种子的Key, 完全相同的种子在一次运行中只处理一次
	seen map[string]bool

	mu     sync.Mutex
	closed bool
}

// NewSeedQueue 创建种子队列, capacity为缓冲大小
func NewSeedQueue(capacity int) *SeedQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &SeedQueue{
		pending: make(chan models.SeedItem, capacity),
		seen:    make(map[string]bool),
	}
}

// Push 种子入队; 队列关闭或种子重复时返回错误
// 缓冲已满时阻塞, 直到有worker取走种子或ctx取消
func (q *SeedQueue) Push(ctx context.Context, item models.SeedItem) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return fmt.Errorf("队列已关闭")
	}
	key := item.Seed.Key()
	if q.seen[key] {
		q.mu.Unlock()
		return fmt.Errorf("重复的种子: %s", item.Seed.URL)
	}
	q.seen[key] = true
	q.mu.Unlock()

	select {
	case q.pending <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pop 取出下一个种子, 队列关闭且为空或ctx取消时返回false
func (q *SeedQueue) Pop(ctx context.Context) (models.SeedItem, bool) {
	select {
	case <-ctx.Done():
		return models.SeedItem{}, false
	case item, ok := <-q.pending:
		return item, ok
	}
}

// PendingCount 当前待处理数量
func (q *SeedQueue) PendingCount() int {
	return len(q.pending)
}

// Close 关闭队列, 已入队的种子仍可被取出
func (q *SeedQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		close(q.pending)
		q.closed = true
	}
}
