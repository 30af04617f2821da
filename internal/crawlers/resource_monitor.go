package crawlers

import (
	"fmt"
	"runtime"
	"time"

	"github.com/RecoveryAshes/JournalCrawler/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// ResourceMonitor 系统资源探测器
// 职责: 根据可用内存与CPU负载给出建议的worker数量
type ResourceMonitor struct {
	config ResourceMonitorConfig

	// 系统可用内存(字节)
	availableMemory uint64

	// 采样得到的CPU使用率(%)
	cpuUsage float64
}

// ResourceMonitorConfig 资源探测配置
type ResourceMonitorConfig struct {
	SafetyReserveMemory int64 // 安全保留内存(字节)
	CPULoadThreshold    int   // CPU负载阈值(%), 超过时只给1个worker
	MaxWorkers          int   // 绝对最大worker数
	StaticWorkerMemory  int64 // 静态模式单worker内存估算(字节)
	BrowserWorkerMemory int64 // 浏览器模式单worker内存估算(字节)
}

// MemoryStatus 内存状态信息
type MemoryStatus struct {
	AvailableMemory uint64  // 系统可用内存(字节)
	SafetyReserve   int64   // 安全保留内存(字节)
	CPUUsage        float64 // CPU使用率(%)
	MemoryPressure  string  // 内存压力等级
}

// NewResourceMonitor 创建资源探测器并立即采样一次
func NewResourceMonitor(config ResourceMonitorConfig) *ResourceMonitor {
	if config.StaticWorkerMemory == 0 {
		config.StaticWorkerMemory = 50 * 1024 * 1024 // 50MB
	}
	if config.BrowserWorkerMemory == 0 {
		config.BrowserWorkerMemory = 300 * 1024 * 1024 // 300MB, 一个Chromium进程
	}
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = 8
	}
	if config.CPULoadThreshold <= 0 {
		config.CPULoadThreshold = 90
	}

	rm := &ResourceMonitor{config: config}
	rm.sample()
	return rm
}

// sample 使用gopsutil采样可用内存与CPU使用率
func (rm *ResourceMonitor) sample() {
	vmStat, err := mem.VirtualMemory()
	if err != nil {
		log.Warn().Err(err).Msg("获取系统内存失败,使用默认值")
		rm.availableMemory = 2 * 1024 * 1024 * 1024 // 默认2GB
	} else {
		rm.availableMemory = vmStat.Available
	}

	// 100毫秒采样, perCPU=false 返回所有核心的平均值
	percentages, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil || len(percentages) == 0 {
		log.Warn().Err(err).Msg("获取CPU使用率失败")
		rm.cpuUsage = 0
		return
	}
	rm.cpuUsage = percentages[0]
}

// RecommendedWorkers 建议的并发worker数
// 浏览器模式每个worker独占一个浏览器, 内存估算更高
func (rm *ResourceMonitor) RecommendedWorkers(mode models.CrawlMode) int {
	perWorker := rm.config.StaticWorkerMemory
	if mode == models.ModeDynamic {
		perWorker = rm.config.BrowserWorkerMemory
	}

	usable := int64(rm.availableMemory) - rm.config.SafetyReserveMemory
	byMemory := 1
	if usable > perWorker {
		byMemory = int(usable / perWorker)
	}

	result := byMemory
	if n := runtime.NumCPU(); n < result {
		result = n
	}
	if rm.config.MaxWorkers < result {
		result = rm.config.MaxWorkers
	}
	if rm.cpuUsage > float64(rm.config.CPULoadThreshold) {
		log.Warn().Msgf("CPU负载过高(当前%.1f%%),只使用1个worker", rm.cpuUsage)
		result = 1
	}
	if result < 1 {
		result = 1
	}

	log.Debug().Msgf("资源探测: 可用内存=%.0fMB, CPU=%.1f%%, 建议worker=%d",
		float64(rm.availableMemory)/(1024*1024), rm.cpuUsage, result)
	return result
}

// GetMemoryStatus 获取内存状态
func (rm *ResourceMonitor) GetMemoryStatus() MemoryStatus {
	availableMB := (int64(rm.availableMemory) - rm.config.SafetyReserveMemory) / (1024 * 1024)

	var pressure string
	switch {
	case availableMB < 200:
		pressure = "emergency"
	case availableMB < 300:
		pressure = "critical"
	case availableMB < 500:
		pressure = "warning"
	default:
		pressure = "normal"
	}

	return MemoryStatus{
		AvailableMemory: rm.availableMemory,
		SafetyReserve:   rm.config.SafetyReserveMemory,
		CPUUsage:        rm.cpuUsage,
		MemoryPressure:  pressure,
	}
}

// String 便于日志输出
func (s MemoryStatus) String() string {
	return fmt.Sprintf("可用内存=%.0fMB, CPU=%.1f%%, 压力=%s",
		float64(s.AvailableMemory)/(1024*1024), s.CPUUsage, s.MemoryPressure)
}
