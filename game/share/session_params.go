package share

// SessionParams 会话创建参数
type SessionParams struct {
	HandSize      int   // 3 或 9
	WinsNeeded    int   // 胜局目标，1 为单回合
	Stake         int64 // 单人入场注
	Practice      bool  // 练习局不发生账务
	VsBot         bool
	BotDifficulty int // 预留的策略选择枚举，当前只有一种策略
}
