package bisca

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

type TickerState int

const (
	StateIdle    TickerState = iota // 空闲
	StateRunning                    // 计时中
	StateStopped                    // 已停止
	StateTimeout                    // 已超时
)

type TurnState int

const (
	TurnStateIdle         TurnState = iota // 等待开始
	TurnStateAwaitPlay                     // 等待当前座位出牌
	TurnStateTrickPending                  // 两张牌落桌，展示间隔中
	TurnStateRoundAdvance                  // 回合结算、重新发牌中
	TurnStateMatchOver                     // 对局结束，终态
)

// TurnManager 两座位的回合管理
// 出牌期限是固定值，不做跨回合的时间累计
type TurnManager struct {
	TurnPointer int       // 当前出牌座位
	State       TurnState // 当前回合状态
	Tickers     [2]*PlayerTicker
}

func NewTurnManager(tickers [2]*PlayerTicker) *TurnManager {
	return &TurnManager{
		TurnPointer: 0,
		State:       TurnStateIdle,
		Tickers:     tickers,
	}
}

// FlipTurn 换对方出牌
func (tm *TurnManager) FlipTurn() int {
	tm.TurnPointer = 1 - tm.TurnPointer
	return tm.TurnPointer
}

func (tm *TurnManager) GetCurrentSeat() int {
	return tm.TurnPointer
}

func (tm *TurnManager) GetState() TurnState {
	return tm.State
}

func (tm *TurnManager) StopAllTickers() {
	for i := 0; i < 2; i++ {
		if tm.Tickers[i] != nil && tm.Tickers[i].GetState() == StateRunning {
			tm.Tickers[i].Stop()
		}
	}
}

// EnterAwaitPlay 进入等待出牌阶段
// armDeadline 为真时启动该座位的出牌倒计时（机器人回合不计时）
func (tm *TurnManager) EnterAwaitPlay(seatIndex int, deadlineSec int, armDeadline bool) error {
	if seatIndex < 0 || seatIndex >= 2 {
		return fmt.Errorf("无效的座位索引: %d", seatIndex)
	}

	tm.StopAllTickers()
	tm.TurnPointer = seatIndex
	tm.State = TurnStateAwaitPlay

	if !armDeadline {
		return nil
	}
	if err := tm.Tickers[seatIndex].Start(deadlineSec); err != nil {
		return fmt.Errorf("启动出牌计时失败: %v", err)
	}
	return nil
}

// EnterTrickPending 两张牌落桌，等待展示间隔后结算
func (tm *TurnManager) EnterTrickPending() {
	tm.StopAllTickers()
	tm.State = TurnStateTrickPending
}

// EnterRoundAdvance 回合结算阶段
func (tm *TurnManager) EnterRoundAdvance() {
	tm.StopAllTickers()
	tm.State = TurnStateRoundAdvance
}

// EnterMatchOver 终态
func (tm *TurnManager) EnterMatchOver() {
	tm.StopAllTickers()
	tm.State = TurnStateMatchOver
}

func (tm *TurnManager) GetPlayerTicker(seatIndex int) *PlayerTicker {
	return tm.Tickers[seatIndex]
}

// PlayerTicker 单座位出牌倒计时
// 超时和主动停止互斥：Stop 返回 false 表示超时处理已经先行
type PlayerTicker struct {
	State     TickerState
	isRunning bool
	ctx       context.Context
	cancel    context.CancelFunc

	onTimeout func()

	sync.RWMutex
}

func NewPlayerTicker() *PlayerTicker {
	return &PlayerTicker{
		State:     StateIdle,
		isRunning: false,
	}
}

// Start 启动倒计时
// duration: 本次出牌期限（秒）
func (pt *PlayerTicker) Start(duration int) error {
	pt.Lock()
	defer pt.Unlock()

	if pt.isRunning {
		return fmt.Errorf("计时已在运行，无法重复启动")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(duration)*time.Second)
	pt.ctx = ctx
	pt.cancel = cancel
	pt.isRunning = true
	pt.State = StateRunning
	go pt.timerLoop(ctx, cancel)

	return nil
}

func (pt *PlayerTicker) timerLoop(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()
	<-ctx.Done()

	pt.Lock()
	defer pt.Unlock()

	// Stop 已经先行处理时 isRunning 为假，这里不再触发超时
	if !errors.Is(ctx.Err(), context.DeadlineExceeded) || !pt.isRunning {
		return
	}
	pt.State = StateTimeout
	pt.isRunning = false
	if pt.onTimeout != nil {
		pt.onTimeout()
	}
}

// Stop 停止计时
// 状态在锁内同步落定，紧接着的 Start 不会撞上还没退出的计时循环；
// 返回 false 表示没有在计时（可能已经超时处理）
func (pt *PlayerTicker) Stop() bool {
	pt.Lock()
	defer pt.Unlock()
	if !pt.isRunning || pt.cancel == nil {
		return false
	}
	pt.isRunning = false
	pt.State = StateStopped
	pt.cancel()
	return true
}

func (pt *PlayerTicker) GetState() TickerState {
	pt.RLock()
	defer pt.RUnlock()
	return pt.State
}

func (pt *PlayerTicker) SetOnTimeout(callback func()) {
	pt.Lock()
	defer pt.Unlock()
	pt.onTimeout = callback
}
