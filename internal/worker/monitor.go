package worker

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/RecoveryAshes/ResumeRadar/internal/utils"
)

// ResourceSnapshot 一次资源采样
type ResourceSnapshot struct {
	ProcessMemMB  int64   // 进程堆内存占用(MB)
	SystemMemPct  float64 // 系统内存占用率
	SystemCPUPct  float64 // 系统CPU占用率
	NumGoroutines int
}

// ResourceMonitor 资源监控器
// 为心跳提供进程/系统资源快照,采样失败返回零值不报错
type ResourceMonitor struct{}

// NewResourceMonitor 创建监控器
func NewResourceMonitor() *ResourceMonitor {
	return &ResourceMonitor{}
}

// Snapshot 采样当前资源占用
func (m *ResourceMonitor) Snapshot() ResourceSnapshot {
	snapshot := ResourceSnapshot{
		NumGoroutines: runtime.NumGoroutine(),
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	snapshot.ProcessMemMB = int64(memStats.Alloc / 1024 / 1024)

	if vm, err := mem.VirtualMemory(); err == nil {
		snapshot.SystemMemPct = vm.UsedPercent
	} else {
		utils.Debugf("系统内存采样失败: %v", err)
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		snapshot.SystemCPUPct = percents[0]
	} else if err != nil {
		utils.Debugf("CPU采样失败: %v", err)
	}

	return snapshot
}
