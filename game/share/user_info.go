package share

// UserInfo 和游戏逻辑隔离的用户信息
type UserInfo struct {
	UserID          string // 用户 ID
	Name            string // 显示名
	Token           string // 操作方令牌，结算调用携带
	ConnectorNodeID string // connector 的 topic（用于主动推送消息）
	IsOnline        bool   // 是否在线
	IsBot           bool   // 机器人座位没有连接，也不参与账务
	SeatIndex       int
}

// NewUserInfo 创建玩家信息
func NewUserInfo(userID, name, token, connectorNodeID string) *UserInfo {
	return &UserInfo{
		UserID:          userID,
		Name:            name,
		Token:           token,
		ConnectorNodeID: connectorNodeID,
		IsOnline:        true,
	}
}

// NewBotInfo 创建机器人座位信息
func NewBotInfo(userID, name string) *UserInfo {
	return &UserInfo{
		UserID:   userID,
		Name:     name,
		IsOnline: true,
		IsBot:    true,
	}
}

// SetOffline 设置玩家离线
func (pi *UserInfo) SetOffline() {
	pi.IsOnline = false
}

// SetOnline 设置玩家在线
func (pi *UserInfo) SetOnline(connectorNodeID string) {
	pi.IsOnline = true
	pi.ConnectorNodeID = connectorNodeID
}
