package bisca

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dfialho05/TAES2025-G3-DDV-sub002/common/config"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/common/log"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/game"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/game/engines"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/game/share"
)

const (
	DefaultTurnTimeout   = 30              // 出牌期限（秒），超时判负
	DefaultTrickDelay    = 1500            // 两张牌落桌后的展示间隔（毫秒）
	DefaultBotThinkDelay = 900             // 机器人思考延迟（毫秒）
	DefaultWaitStartTime = 2 * time.Second // 等待游戏开始时间
	statusLogLimit       = 64
)

/*
	状态机大致分为：
		发牌 -> 等待出牌(座位) -> 桌上 0/1 张牌 -> 两张落桌后展示间隔 -> 墩结算 -> 补牌
		-> 回合推进 -> {继续出牌 | 回合结束 -> 对局结束 | 重新发牌}
	终态是对局结束

	每个会话由单一 actor 串行驱动，会话内部字段不加锁；
	三个定时器都是可取消的 time.AfterFunc / 倒计时：
		墩展示间隔、机器人思考延迟、真人出牌期限（超时走判负路径）
	对外部存储的镜像都是全量覆盖且异步，落库失败只记日志，游戏继续用内存状态推进
*/

// Bisca2p 两人 bisca 游戏引擎
type Bisca2p struct {
	State       engines.GameState
	Worker      *game.Worker               // Game Worker（由容器注入）
	SessionID   string                     // 会话 ID
	UserMap     map[string]*share.UserInfo // Session.Users 的引用（Engine 和 Session 共用）
	Params      *share.SessionParams
	Players     [2]*PlayerImage
	DeckManager *DeckManager
	TurnManager *TurnManager
	Table       []TableMove // 0、1 或 2 张，不会更多
	Leader      int         // 本墩首家座位
	RoundNumber int
	StatusLog   []string
	Hooks       *SettlementHooks

	roundOver bool
	gameOver  bool
	forfeited bool

	turnTimeoutSec int
	trickDelay     time.Duration
	botThinkDelay  time.Duration

	roundStartTimer *time.Timer
	trickTimer      *time.Timer
	botTimer        *time.Timer

	gameEvents chan share.GameEvent
	gameDone   chan struct{}
	actorExit  chan struct{}
	closed     atomic.Bool // 接收游戏事件的关闭开关
	closeOnce  sync.Once
}

// NewBisca2p 创建两人 bisca 引擎实例
func NewBisca2p(worker *game.Worker, params *share.SessionParams) *Bisca2p {
	eg := &Bisca2p{
		State:          engines.GameWaiting,
		Worker:         worker,
		Params:         params,
		Table:          make([]TableMove, 0, 2),
		RoundNumber:    1,
		turnTimeoutSec: DefaultTurnTimeout,
		trickDelay:     DefaultTrickDelay * time.Millisecond,
		botThinkDelay:  DefaultBotThinkDelay * time.Millisecond,
	}
	if c := config.GameNodeConfig.BiscaConf; c.TurnTimeoutSec > 0 {
		eg.turnTimeoutSec = c.TurnTimeoutSec
		eg.trickDelay = time.Duration(c.TrickDelayMs) * time.Millisecond
		eg.botThinkDelay = time.Duration(c.BotThinkDelayMs) * time.Millisecond
	}
	return eg
}

// InitializeEngine 初始化游戏引擎
// users 的 SeatIndex 由会话管理器分配好（0 和 1）
func (eg *Bisca2p) InitializeEngine(sessionID string, userMap map[string]*share.UserInfo) error {
	eg.SessionID = sessionID
	eg.UserMap = userMap

	for _, userInfo := range userMap {
		if userInfo.SeatIndex < 0 || userInfo.SeatIndex > 1 {
			return fmt.Errorf("非法的座位索引: %d", userInfo.SeatIndex)
		}
		eg.Players[userInfo.SeatIndex] = NewPlayerImage(userInfo.UserID, userInfo.SeatIndex, userInfo.IsBot)
	}
	if eg.Players[0] == nil || eg.Players[1] == nil {
		return fmt.Errorf("会话需要恰好两个座位")
	}

	eg.startActor()

	if eg.Worker != nil && eg.Worker.MatchRecordRepository != nil {
		eg.Hooks = NewSettlementHooks(eg.Worker.MatchRecordRepository, eg.Worker.CoinLedgerRepository, sessionID, eg.UserMap, eg.Params)
		eg.Hooks.OnSessionStart()
	}

	eg.appendStatus("会话创建")
	eg.roundStartTimer = time.AfterFunc(DefaultWaitStartTime, func() {
		eg.State = engines.GameInProgress
		eg.NotifyEvent(&StartRoundEvent{})
	})

	return nil
}

// startActor 初始化事件通道并启动串行事件循环
func (eg *Bisca2p) startActor() {
	eg.closed.Store(false)
	eg.gameEvents = make(chan share.GameEvent, 256)
	eg.gameDone = make(chan struct{})
	eg.actorExit = make(chan struct{})

	tickers := [2]*PlayerTicker{}
	for seat := 0; seat < 2; seat++ {
		ticker := NewPlayerTicker()
		ticker.SetOnTimeout(eg.makeTimeoutHandler(seat))
		tickers[seat] = ticker
	}
	eg.TurnManager = NewTurnManager(tickers)

	go eg.actorLoop()
}

// actorLoop 游戏事件循环
func (eg *Bisca2p) actorLoop() {
	defer func() {
		if eg.actorExit != nil {
			close(eg.actorExit)
		}
	}()
	for {
		select {
		case <-eg.gameDone:
			return
		case event := <-eg.gameEvents:
			eg.processEvent(event)
		}
	}
}

func (eg *Bisca2p) NotifyEvent(event share.GameEvent) {
	if event == nil {
		return
	}
	if eg.closed.Load() {
		return
	}

	select {
	case <-eg.gameDone:
		return
	case eg.gameEvents <- event:
		return
	default:
		log.Warn("gameEvents 队列已满, eventType=%s", event.GetEventType())
		return
	}
}

// RequestSync 周期性镜像入口，由 worker 的同步循环调用
func (eg *Bisca2p) RequestSync() {
	eg.NotifyEvent(&share.SyncEvent{})
}

func (eg *Bisca2p) processEvent(event share.GameEvent) {
	if event == nil {
		log.Warn("事件为空")
		return
	}

	switch event.GetEventType() {
	case "PlayCard":
		if playEvent, ok := event.(*share.PlayCardEvent); ok {
			eg.handlePlayCardEvent(playEvent)
		}
	case "Reconnect":
		if reconnectEvent, ok := event.(*share.ReconnectEvent); ok {
			eg.handleReconnectEvent(reconnectEvent)
		}
	case "Disconnect":
		if disconnectEvent, ok := event.(*share.DisconnectEvent); ok {
			eg.handleDisconnectEvent(disconnectEvent)
		}
	case "Sync":
		eg.mirrorState()
	case "Timeout":
		if t, ok := event.(*TimeoutEvent); ok {
			eg.handleTimeoutEvent(t)
		}
	case "StartRound":
		if _, ok := event.(*StartRoundEvent); ok {
			eg.handleStartRoundEvent()
		}
	case "TrickResolve":
		if _, ok := event.(*TrickResolveEvent); ok {
			eg.handleTrickResolveEvent()
		}
	case "BotMove":
		if _, ok := event.(*BotMoveEvent); ok {
			eg.handleBotMoveEvent()
		}
	case "Resume":
		if _, ok := event.(*ResumeEvent); ok {
			eg.handleResumeEvent()
		}
	default:
		log.Warn("不支持的事件类型: %s", event.GetEventType())
	}
}

// handleStartRoundEvent 发牌：洗牌、发手牌、翻主牌指示牌，首家由 Leader 决定
func (eg *Bisca2p) handleStartRoundEvent() {
	if eg.gameOver {
		return
	}
	if eg.DeckManager == nil {
		eg.DeckManager = NewDeckManager()
	}

	hand1, hand2 := eg.DeckManager.InitRound(eg.Params.HandSize)
	eg.Players[0].Hand = hand1
	eg.Players[0].Score = 0
	eg.Players[1].Hand = hand2
	eg.Players[1].Score = 0
	eg.Table = eg.Table[:0]
	eg.roundOver = false
	eg.TurnManager.TurnPointer = eg.Leader

	eg.appendStatus(fmt.Sprintf("第 %d 回合开始, 主牌花色 %s", eg.RoundNumber, eg.DeckManager.TrumpSuit()))
	log.Info("会话 %s 第 %d 回合开始, 主牌: %v", eg.SessionID, eg.RoundNumber, eg.DeckManager.TrumpCard())

	eg.pushSnapshot()
	eg.mirrorState()
	eg.advance()
}

// advance 每次局面变化后的统一调度
// 两张落桌 -> 展示间隔后结算；机器人回合 -> 思考延迟；真人回合 -> 上出牌倒计时
func (eg *Bisca2p) advance() {
	if eg.gameOver || eg.roundOver {
		return
	}

	if len(eg.Table) == 2 {
		eg.TurnManager.EnterTrickPending()
		eg.cancelTrickTimer()
		eg.trickTimer = time.AfterFunc(eg.trickDelay, func() {
			eg.NotifyEvent(&TrickResolveEvent{})
		})
		return
	}

	seat := eg.TurnManager.GetCurrentSeat()
	p := eg.Players[seat]
	if p == nil {
		eg.HappenDamageError(fmt.Sprintf("座位 %d 没有玩家", seat))
		return
	}

	if p.IsBot {
		if err := eg.TurnManager.EnterAwaitPlay(seat, 0, false); err != nil {
			eg.HappenDamageError(fmt.Sprintf("进入机器人出牌阶段失败: %v", err))
			return
		}
		eg.cancelBotTimer()
		eg.botTimer = time.AfterFunc(eg.botThinkDelay, func() {
			eg.NotifyEvent(&BotMoveEvent{})
		})
		return
	}

	if err := eg.TurnManager.EnterAwaitPlay(seat, eg.turnTimeoutSec, true); err != nil {
		eg.HappenDamageError(fmt.Sprintf("进入出牌阶段失败: %v", err))
		return
	}
}

func (eg *Bisca2p) handlePlayCardEvent(event *share.PlayCardEvent) {
	if eg.gameOver {
		return
	}
	if eg.TurnManager.GetState() != TurnStateAwaitPlay {
		log.Warn("当前不在出牌阶段: state=%v", eg.TurnManager.GetState())
		return
	}
	seat, err := eg.getSeatIndex(event.GetUserID())
	if err != nil {
		log.Warn("获取玩家座位失败: %v", err)
		return
	}
	if seat != eg.TurnManager.GetCurrentSeat() {
		eg.rejectPlay(seat, "不是该玩家的回合")
		return
	}

	p := eg.Players[seat]
	if !p.IsBot {
		ticker := eg.TurnManager.GetPlayerTicker(seat)
		if !ticker.Stop() {
			log.Warn("handlePlayCardEvent 出牌已经超时处理: user=%s", event.GetUserID())
			return
		}
	}

	if !eg.applyPlay(seat, event.HandIndex) {
		// 拒绝后重新上倒计时，期限不重置到整段是可以接受的简化
		eg.advance()
	}
}

// applyPlay 校验并落牌，返回是否接受
// 拒绝不抛错也不改状态，只把原因回推给出牌方
func (eg *Bisca2p) applyPlay(seat int, handIndex int) bool {
	p := eg.Players[seat]
	if handIndex < 0 || handIndex >= len(p.Hand) {
		eg.rejectPlay(seat, "手牌下标越界")
		return false
	}

	var leadCard *Card
	if len(eg.Table) == 1 {
		leadCard = &eg.Table[0].Card
	}
	candidate := p.Hand[handIndex]
	if !IsLegalPlay(p.Hand, leadCard, eg.DeckManager.Exhausted(), candidate) {
		eg.rejectPlay(seat, "必须跟首家花色")
		return false
	}

	card, _ := p.RemoveCardAt(handIndex)
	eg.Table = append(eg.Table, TableMove{Seat: seat, Card: card})
	eg.TurnManager.FlipTurn()
	eg.appendStatus(fmt.Sprintf("座位 %d 出牌 %s", seat, card))

	eg.pushSnapshot()
	eg.mirrorState()
	eg.advance()
	return true
}

// handleBotMoveEvent 机器人出牌
func (eg *Bisca2p) handleBotMoveEvent() {
	if eg.gameOver {
		return
	}
	if eg.TurnManager.GetState() != TurnStateAwaitPlay {
		return
	}
	seat := eg.TurnManager.GetCurrentSeat()
	p := eg.Players[seat]
	if p == nil || !p.IsBot {
		return
	}

	mustFollow := eg.DeckManager.Exhausted()
	idx := ChooseMove(p.Hand, eg.Table, eg.DeckManager.TrumpSuit(), mustFollow)
	if idx < 0 {
		eg.HappenDamageError("机器人没有可出的牌")
		return
	}
	if !eg.applyPlay(seat, idx) {
		eg.HappenDamageError("机器人出牌被规则拒绝")
	}
}

// handleTrickResolveEvent 墩结算：判归属、记点、补牌，赢家做下一墩首家
func (eg *Bisca2p) handleTrickResolveEvent() {
	if eg.gameOver {
		return
	}
	if eg.TurnManager.GetState() != TurnStateTrickPending || len(eg.Table) != 2 {
		log.Warn("墩结算状态异常: state=%v, table=%d", eg.TurnManager.GetState(), len(eg.Table))
		return
	}

	result := ResolveTrick(eg.Table[0], eg.Table[1], eg.DeckManager.TrumpSuit())
	winner := eg.Players[result.WinnerSeat]
	loser := eg.Players[1-result.WinnerSeat]
	winner.Score += result.Points

	eg.appendStatus(fmt.Sprintf("座位 %d 吃下一墩, %d 点", result.WinnerSeat, result.Points))

	DrawAfterTrick(eg.DeckManager, winner, loser)
	eg.Table = eg.Table[:0]
	eg.Leader = result.WinnerSeat
	eg.TurnManager.TurnPointer = result.WinnerSeat

	if IsRoundOver(eg.Players[0].Hand, eg.Players[1].Hand) {
		eg.cleanupRound(result.WinnerSeat)
		return
	}

	eg.pushSnapshot()
	eg.mirrorState()
	eg.advance()
}

// cleanupRound 回合结束：计划数、落回合结算，继续下一回合或进入终态
func (eg *Bisca2p) cleanupRound(lastTrickWinner int) {
	eg.roundOver = true
	eg.TurnManager.EnterRoundAdvance()

	score0 := eg.Players[0].Score
	score1 := eg.Players[1].Score
	eg.Players[0].TotalPoints += score0
	eg.Players[1].TotalPoints += score1

	winnerSeat := -1
	marks := 0
	if score0 != score1 {
		winnerSeat = 0
		if score1 > score0 {
			winnerSeat = 1
		}
		marks = ClassifyMarks(eg.Players[winnerSeat].Score, eg.Params.WinsNeeded)
		eg.Players[winnerSeat].Marks += marks
	}

	winnerID := ""
	if winnerSeat >= 0 {
		winnerID = eg.Players[winnerSeat].UserID
	}
	eg.appendStatus(fmt.Sprintf("第 %d 回合结束: %d - %d, 划数 +%d", eg.RoundNumber, score0, score1, marks))

	if eg.Hooks != nil {
		eg.Hooks.OnRoundEnd(eg.RoundNumber, winnerID, [2]int{score0, score1}, marks)
	}
	eg.broadcastRoundEnd(winnerSeat, [2]int{score0, score1}, marks)

	if winnerSeat >= 0 && eg.Players[winnerSeat].Marks >= eg.Params.WinsNeeded {
		eg.handleMatchOverEvent(winnerSeat)
		return
	}

	// 对局继续，上一墩赢家做下回合首家
	eg.RoundNumber++
	eg.Leader = lastTrickWinner
	eg.NotifyEvent(&StartRoundEvent{})
}

// handleMatchOverEvent 对局结束，生命周期结束，通知结果，自毁回调
func (eg *Bisca2p) handleMatchOverEvent(winnerSeat int) {
	eg.gameOver = true
	eg.State = engines.GameFinished
	eg.TurnManager.EnterMatchOver()
	eg.cancelTrickTimer()
	eg.cancelBotTimer()

	winner := eg.Players[winnerSeat]
	marks := [2]int{eg.Players[0].Marks, eg.Players[1].Marks}
	totals := [2]int{eg.Players[0].TotalPoints, eg.Players[1].TotalPoints}
	eg.appendStatus(fmt.Sprintf("对局结束, 胜者 %s", winner.UserID))
	log.Info("会话 %s 对局结束, 胜者 %s, 划数 %v", eg.SessionID, winner.UserID, marks)

	if eg.Hooks != nil {
		eg.Hooks.OnMatchEnd(winner.UserID, winnerSeat, marks, totals, eg.forfeited)
	}
	eg.broadcastMatchEnd(winnerSeat, marks, totals)
	eg.mirrorState()
	eg.Terminate()
}

func (eg *Bisca2p) handleTimeoutEvent(event *TimeoutEvent) {
	if eg.gameOver {
		return
	}
	if eg.TurnManager.GetState() != TurnStateAwaitPlay || event.SeatIndex != eg.TurnManager.GetCurrentSeat() {
		// 陈旧的超时信号
		return
	}
	log.Info("会话 %s 座位 %d 出牌超时, 判负", eg.SessionID, event.SeatIndex)
	eg.resolveTimeout(event.SeatIndex)
}

// resolveTimeout 超时判负
// 牌堆、双方手牌、桌面、未摸的主牌指示牌的全部剩余点数都判给对方，
// 对局立即以对方胜利结束，不再看划数阈值；gameOver 守卫保证幂等
func (eg *Bisca2p) resolveTimeout(losingSeat int) {
	if eg.gameOver {
		return
	}
	winnerSeat := 1 - losingSeat
	winner := eg.Players[winnerSeat]
	loser := eg.Players[losingSeat]

	remaining := eg.DeckManager.RemainingPoints() + winner.HandPoints() + loser.HandPoints()
	for _, mv := range eg.Table {
		remaining += mv.Card.Points()
	}
	winner.Score += remaining
	winner.TotalPoints += winner.Score
	loser.TotalPoints += loser.Score
	winner.Marks = eg.Params.WinsNeeded
	eg.forfeited = true

	eg.appendStatus(fmt.Sprintf("座位 %d 超时判负", losingSeat))
	eg.broadcastForfeit(losingSeat)
	eg.handleMatchOverEvent(winnerSeat)
}

func (eg *Bisca2p) handleReconnectEvent(event *share.ReconnectEvent) {
	userInfo, exists := eg.UserMap[event.GetUserID()]
	if !exists {
		log.Warn("重连玩家 %s 不在会话 %s 中", event.GetUserID(), eg.SessionID)
		return
	}
	if event.ConnectorNodeID != "" {
		userInfo.SetOnline(event.ConnectorNodeID)
	} else {
		userInfo.IsOnline = true
	}
	eg.appendStatus(fmt.Sprintf("玩家 %s 重连", event.GetUserID()))

	eg.pushSnapshotTo(event.GetUserID())
	eg.broadcastPeerReconnect(event.GetUserID())
}

func (eg *Bisca2p) handleDisconnectEvent(event *share.DisconnectEvent) {
	userInfo, exists := eg.UserMap[event.GetUserID()]
	if !exists {
		return
	}
	userInfo.SetOffline()
	eg.appendStatus(fmt.Sprintf("玩家 %s 掉线", event.GetUserID()))
	// 会话继续推进，真人回合的倒计时照常走判负路径
	eg.broadcastPeerDisconnect(event.GetUserID())
}

// handleResumeEvent 快照恢复后的续跑：重新上当前回合的定时器
func (eg *Bisca2p) handleResumeEvent() {
	if eg.gameOver {
		return
	}
	// 快照落在回合结算和下一次发牌之间时，发牌事件已随崩溃丢失，这里补发
	if eg.roundOver {
		eg.State = engines.GameInProgress
		eg.handleStartRoundEvent()
		return
	}
	eg.pushSnapshot()
	eg.mirrorState()
	if len(eg.Table) == 2 {
		eg.advance()
		return
	}
	seat := eg.TurnManager.GetCurrentSeat()
	eg.TurnManager.State = TurnStateIdle
	eg.TurnManager.TurnPointer = seat
	eg.advance()
}

// makeTimeoutHandler 创建超时处理回调
func (eg *Bisca2p) makeTimeoutHandler(seatIndex int) func() {
	return func() {
		eg.NotifyEvent(&TimeoutEvent{SeatIndex: seatIndex})
	}
}

// rejectPlay 出牌被拒：不改状态，把原因回推给出牌方
func (eg *Bisca2p) rejectPlay(seat int, reason string) {
	log.Info("会话 %s 座位 %d 出牌被拒: %s", eg.SessionID, seat, reason)
	eg.pushReject(seat, reason)
}

func (eg *Bisca2p) appendStatus(entry string) {
	eg.StatusLog = append(eg.StatusLog, entry)
	if len(eg.StatusLog) > statusLogLimit {
		eg.StatusLog = eg.StatusLog[len(eg.StatusLog)-statusLogLimit:]
	}
}

func (eg *Bisca2p) cancelTrickTimer() {
	if eg.trickTimer != nil {
		eg.trickTimer.Stop()
		eg.trickTimer = nil
	}
}

func (eg *Bisca2p) cancelBotTimer() {
	if eg.botTimer != nil {
		eg.botTimer.Stop()
		eg.botTimer = nil
	}
}

// getSeatIndex 从 UserMap 中查找玩家座位
func (eg *Bisca2p) getSeatIndex(userID string) (int, error) {
	if eg.UserMap == nil {
		return -1, fmt.Errorf("UserMap 未初始化")
	}
	userInfo, exists := eg.UserMap[userID]
	if !exists {
		return -1, fmt.Errorf("玩家 %s 不在会话中", userID)
	}
	return userInfo.SeatIndex, nil
}

// HappenDamageError 发生会话崩坏的重大事件
func (eg *Bisca2p) HappenDamageError(err string) {
	log.Warn("游戏会话崩坏: session=%s, %s", eg.SessionID, err)
	eg.Terminate()
}

// Terminate 自毁程序
func (eg *Bisca2p) Terminate() {
	if eg.Worker == nil {
		return
	}
	if eg.SessionID == "" {
		return
	}
	eg.Worker.RequestDestroySession(eg.SessionID)
}

func (eg *Bisca2p) Close() {
	eg.closeOnce.Do(func() {
		eg.closed.Store(true)
		if eg.gameDone != nil {
			close(eg.gameDone)
		}
		if eg.actorExit != nil {
			<-eg.actorExit
		}
		if eg.gameEvents != nil {
			close(eg.gameEvents)
		}

		eg.State = engines.GameFinished
		if eg.roundStartTimer != nil {
			eg.roundStartTimer.Stop()
		}
		eg.cancelTrickTimer()
		eg.cancelBotTimer()

		if eg.TurnManager != nil {
			eg.TurnManager.StopAllTickers()
		}
		eg.Worker = nil
		eg.UserMap = nil
	})
}

type TimeoutEvent struct {
	share.GameMessageEvent
	SeatIndex int
}

func (e *TimeoutEvent) GetEventType() string {
	return "Timeout"
}

type StartRoundEvent struct {
	share.GameMessageEvent
}

func (e *StartRoundEvent) GetEventType() string {
	return "StartRound"
}

type TrickResolveEvent struct {
	share.GameMessageEvent
}

func (e *TrickResolveEvent) GetEventType() string {
	return "TrickResolve"
}

type BotMoveEvent struct {
	share.GameMessageEvent
}

func (e *BotMoveEvent) GetEventType() string {
	return "BotMove"
}

type ResumeEvent struct {
	share.GameMessageEvent
}

func (e *ResumeEvent) GetEventType() string {
	return "Resume"
}
