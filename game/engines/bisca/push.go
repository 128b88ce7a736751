package bisca

import (
	"encoding/json"

	"github.com/dfialho05/TAES2025-G3-DDV-sub002/common/log"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/core/infrastructure/message/protocol"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/core/infrastructure/message/transfer"
)

// 推送场景：
// 1. 全量状态快照（局面每次变化后）
// 2. 回合结束
// 3. 对局结束
// 4. 超时判负
// 5. 出牌被拒
// 6. 对手重连 / 掉线

// pushSnapshot 给两个真人玩家各推一份全量快照
// 快照永远是全量，不做增量差分
func (eg *Bisca2p) pushSnapshot() {
	if eg.Worker == nil {
		return
	}
	snapshot := eg.buildSnapshot()
	for _, p := range eg.Players {
		if p == nil || p.IsBot {
			continue
		}
		eg.pushSnapshotPayload(p.UserID, snapshot, p.Seat)
	}
}

// pushSnapshotTo 只给指定玩家推快照（重连场景）
func (eg *Bisca2p) pushSnapshotTo(userID string) {
	if eg.Worker == nil {
		return
	}
	userInfo, exists := eg.UserMap[userID]
	if !exists {
		return
	}
	eg.pushSnapshotPayload(userID, eg.buildSnapshot(), userInfo.SeatIndex)
}

func (eg *Bisca2p) pushSnapshotPayload(userID string, snapshot *SessionSnapshot, seat int) {
	dto := SnapshotPushDTO{
		Snapshot:   snapshot,
		PlayerRole: seat,
	}
	data, err := json.Marshal(dto)
	if err != nil {
		log.Error("pushSnapshotPayload: 序列化失败: %v", err)
		return
	}
	eg.dispatchPush([]string{userID}, transfer.GamePush, transfer.GameplaySnapshot, data)
}

// pushReject 出牌被拒，只通知出牌方
func (eg *Bisca2p) pushReject(seat int, reason string) {
	p := eg.Players[seat]
	if p == nil || p.IsBot {
		return
	}
	dto := PlayRejectedDTO{
		SeatIndex: seat,
		Reason:    reason,
	}
	data, err := json.Marshal(dto)
	if err != nil {
		log.Error("pushReject: 序列化失败: %v", err)
		return
	}
	eg.dispatchPush([]string{p.UserID}, transfer.GamePush, transfer.GameplayPlayRejected, data)
}

// broadcastRoundEnd 广播回合结束，winnerSeat 为 -1 表示 60 平
func (eg *Bisca2p) broadcastRoundEnd(winnerSeat int, points [2]int, marks int) {
	winnerID := ""
	if winnerSeat >= 0 {
		winnerID = eg.Players[winnerSeat].UserID
	}
	dto := RoundEndDTO{
		RoundNumber: eg.RoundNumber,
		WinnerSeat:  winnerSeat,
		WinnerID:    winnerID,
		Points:      points,
		Marks:       [2]int{eg.Players[0].Marks, eg.Players[1].Marks},
		MarksGained: marks,
	}
	data, err := json.Marshal(dto)
	if err != nil {
		log.Error("broadcastRoundEnd: 序列化失败: %v", err)
		return
	}
	eg.dispatchPush(eg.humanUserIDs(), transfer.GamePush, transfer.GameplayRoundEnd, data)
	log.Info("broadcastRoundEnd: 会话 %s 第 %d 回合, %d - %d", eg.SessionID, eg.RoundNumber, points[0], points[1])
}

// broadcastMatchEnd 广播对局结束
func (eg *Bisca2p) broadcastMatchEnd(winnerSeat int, marks [2]int, totals [2]int) {
	dto := MatchEndDTO{
		WinnerSeat:  winnerSeat,
		WinnerID:    eg.Players[winnerSeat].UserID,
		Marks:       marks,
		TotalPoints: totals,
		Forfeited:   eg.forfeited,
	}
	data, err := json.Marshal(dto)
	if err != nil {
		log.Error("broadcastMatchEnd: 序列化失败: %v", err)
		return
	}
	eg.dispatchPush(eg.humanUserIDs(), transfer.GamePush, transfer.GameplayMatchEnd, data)
	log.Info("broadcastMatchEnd: 会话 %s 胜者座位 %d", eg.SessionID, winnerSeat)
}

// broadcastForfeit 广播超时判负
func (eg *Bisca2p) broadcastForfeit(timedOutSeat int) {
	dto := ForfeitDTO{
		TimedOutSeat: timedOutSeat,
		TimedOutUser: eg.Players[timedOutSeat].UserID,
	}
	data, err := json.Marshal(dto)
	if err != nil {
		log.Error("broadcastForfeit: 序列化失败: %v", err)
		return
	}
	eg.dispatchPush(eg.humanUserIDs(), transfer.GamePush, transfer.GameplayForfeit, data)
}

// broadcastPeerReconnect 通知对手：该玩家已重连
func (eg *Bisca2p) broadcastPeerReconnect(userID string) {
	eg.broadcastPeerNotice(userID, transfer.GameplayPeerReconnect)
}

// broadcastPeerDisconnect 通知对手：该玩家已掉线
func (eg *Bisca2p) broadcastPeerDisconnect(userID string) {
	eg.broadcastPeerNotice(userID, transfer.GameplayPeerDisconnect)
}

func (eg *Bisca2p) broadcastPeerNotice(userID string, route string) {
	dto := PeerNoticeDTO{UserID: userID}
	data, err := json.Marshal(dto)
	if err != nil {
		log.Error("broadcastPeerNotice: 序列化失败: %v", err)
		return
	}
	targets := make([]string, 0, 1)
	for _, p := range eg.Players {
		if p == nil || p.IsBot || p.UserID == userID {
			continue
		}
		targets = append(targets, p.UserID)
	}
	if len(targets) == 0 {
		return
	}
	eg.dispatchPush(targets, transfer.GamePush, route, data)
}

func (eg *Bisca2p) humanUserIDs() []string {
	userIDs := make([]string, 0, 2)
	for _, p := range eg.Players {
		if p != nil && !p.IsBot && p.UserID != "" {
			userIDs = append(userIDs, p.UserID)
		}
	}
	return userIDs
}

// dispatchPush 聚合推送消息（按 connector 分组）
func (eg *Bisca2p) dispatchPush(users []string, connectorRoute, clientRoute string, data []byte) {
	if eg.Worker == nil {
		return
	}
	if len(users) == 0 {
		return
	}

	connectorGroups := make(map[string][]string) // connectorNodeID -> []userID
	for _, userID := range users {
		if userID == "" {
			continue
		}
		// UserMap 只在 actor 线程中读写，无需加锁
		userInfo, exists := eg.UserMap[userID]
		if !exists {
			log.Warn("dispatchPush: 用户 %s 不在 UserMap 中", userID)
			continue
		}
		if !userInfo.IsOnline || userInfo.ConnectorNodeID == "" {
			continue
		}
		connectorGroups[userInfo.ConnectorNodeID] = append(connectorGroups[userInfo.ConnectorNodeID], userID)
	}

	for connectorNodeID, userIDs := range connectorGroups {
		packet := &transfer.ServicePacket{
			Source:      eg.Worker.NodeID,
			Destination: connectorNodeID,
			Route:       connectorRoute, // 服务间路由
			PushUser:    userIDs,        // 该 connector 下的所有用户
			Body: &protocol.Message{
				Type:  protocol.Push,
				Route: clientRoute, // 客户端路由
				Data:  data,
			},
		}
		err := eg.Worker.PushMessage(packet)
		if err != nil {
			log.Warn("dispatchPush: 推送给 connector %s 失败: %v, users: %v", connectorNodeID, err, userIDs)
			continue
		}
	}
}

// ==================== 推送数据结构 ====================

// SnapshotPushDTO 全量快照推送
type SnapshotPushDTO struct {
	Snapshot   *SessionSnapshot `json:"snapshot"`
	PlayerRole int              `json:"playerRole"` // 收件人的座位
}

// PlayRejectedDTO 出牌被拒
type PlayRejectedDTO struct {
	SeatIndex int    `json:"seatIndex"`
	Reason    string `json:"reason"`
}

// RoundEndDTO 回合结束信息
type RoundEndDTO struct {
	RoundNumber int    `json:"roundNumber"`
	WinnerSeat  int    `json:"winnerSeat"` // -1 表示平局
	WinnerID    string `json:"winnerId"`
	Points      [2]int `json:"points"`      // 本回合双方点数
	Marks       [2]int `json:"marks"`       // 累计划数
	MarksGained int    `json:"marksGained"` // 本回合记的划数
}

// MatchEndDTO 对局结束信息
type MatchEndDTO struct {
	WinnerSeat  int    `json:"winnerSeat"`
	WinnerID    string `json:"winnerId"`
	Marks       [2]int `json:"marks"`
	TotalPoints [2]int `json:"totalPoints"`
	Forfeited   bool   `json:"forfeited"`
}

// ForfeitDTO 超时判负信息
type ForfeitDTO struct {
	TimedOutSeat int    `json:"timedOutSeat"`
	TimedOutUser string `json:"timedOutUser"`
}

// PeerNoticeDTO 对手上下线通知
type PeerNoticeDTO struct {
	UserID string `json:"userId"`
}
