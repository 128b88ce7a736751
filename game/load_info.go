package game

// LoadInfo 负载信息
// 用于计算 game 节点的综合负载评分
type LoadInfo struct {
	SessionCount int     // 当前会话数
	PlayerCount  int     // 当前真人玩家数
	CPUUsage     float64 // CPU 使用率（0-100）
	MemUsage     float64 // 内存使用率（0-100）
}

// CalculateLoad 计算综合负载评分
// 权重：CPU 30%、内存 20%、会话数 25%、玩家数 25%
// 返回值越小表示负载越低
func (li *LoadInfo) CalculateLoad() float64 {
	// 会话数和玩家数按 100 归一化
	normalizedSessionCount := float64(li.SessionCount) / 100.0
	if normalizedSessionCount > 1.0 {
		normalizedSessionCount = 1.0
	}

	normalizedPlayerCount := float64(li.PlayerCount) / 100.0
	if normalizedPlayerCount > 1.0 {
		normalizedPlayerCount = 1.0
	}

	load := li.CPUUsage*0.3 + li.MemUsage*0.2 + normalizedSessionCount*100*0.25 + normalizedPlayerCount*100*0.25

	return load
}
