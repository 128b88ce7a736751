package game

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/dfialho05/TAES2025-G3-DDV-sub002/common/log"
)

// Monitor 节点负载监控
// 周期性收集会话数、玩家数和系统资源占用并记录日志，
// 供部署侧通过日志与 metrics 端口观察节点水位
type Monitor struct {
	sessionManager *SessionManager
	updateInterval time.Duration
	stopCh         chan struct{}
}

// NewMonitor 创建监控器
// updateInterval: 更新间隔（建议 5-10 秒）
func NewMonitor(sessionManager *SessionManager, updateInterval time.Duration) *Monitor {
	return &Monitor{
		sessionManager: sessionManager,
		updateInterval: updateInterval,
		stopCh:         make(chan struct{}),
	}
}

// Report 启动监控循环
func (m *Monitor) Report(ctx context.Context) {
	ticker := time.NewTicker(m.updateInterval)
	defer ticker.Stop()

	m.reportLoad()

	for {
		select {
		case <-ctx.Done():
			log.Info("Monitor 收到停止信号，退出监控")
			return
		case <-m.stopCh:
			log.Info("Monitor 收到停止信号，退出监控")
			return
		case <-ticker.C:
			m.reportLoad()
		}
	}
}

// Stop 停止监控器
func (m *Monitor) Stop() {
	select {
	case <-m.stopCh:
	default:
		close(m.stopCh)
	}
}

func (m *Monitor) reportLoad() {
	loadInfo := m.CollectLoadInfo()
	load := loadInfo.CalculateLoad()

	log.Info("Monitor 负载: Load=%.2f, Sessions=%d, Players=%d, CPU=%.2f%%, Mem=%.2f%%",
		load, loadInfo.SessionCount, loadInfo.PlayerCount, loadInfo.CPUUsage, loadInfo.MemUsage)
}

// CollectLoadInfo 收集负载信息
func (m *Monitor) CollectLoadInfo() *LoadInfo {
	sessionCount, playerCount := m.sessionManager.GetStats()

	return &LoadInfo{
		SessionCount: sessionCount,
		PlayerCount:  playerCount,
		CPUUsage:     m.getCPUUsage(),
		MemUsage:     m.getMemoryUsage(),
	}
}

// getCPUUsage 系统 CPU 使用率
func (m *Monitor) getCPUUsage() float64 {
	percents, err := cpu.Percent(0, false)
	if err != nil || len(percents) == 0 {
		return 0.0
	}
	return percents[0]
}

// getMemoryUsage 系统内存使用率
func (m *Monitor) getMemoryUsage() float64 {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0.0
	}
	return vm.UsedPercent
}
