package bisca

// 划数阈值
// 全取 120 为横扫，赢家直接拿满胜局目标；对手不过 30（赢家 >= 91）记 2 划；
// 普通胜局记 1 划；60 平局双方都不记
const (
	fullSweepScore = TotalPoints
	doubleMarkMin  = 91
	singleMarkMin  = 61
)

// IsLegalPlay 出牌合法性
// 牌堆未摸空时任何手牌都合法；摸空后进入跟花阶段：
// 手里有首家花色就只能跟花，否则任意（包括主牌）
func IsLegalPlay(hand []Card, leadCard *Card, deckEmpty bool, candidate Card) bool {
	found := false
	for _, c := range hand {
		if c == candidate {
			found = true
			break
		}
	}
	if !found {
		return false
	}
	if !deckEmpty || leadCard == nil {
		return true
	}

	hasLeadSuit := false
	for _, c := range hand {
		if c.Suit == leadCard.Suit {
			hasLeadSuit = true
			break
		}
	}
	if !hasLeadSuit {
		return true
	}
	return candidate.Suit == leadCard.Suit
}

// TrickResult 单墩结算
type TrickResult struct {
	WinnerSeat int
	Points     int
}

// ResolveTrick 判定一墩的归属
// 同花色比牌力（点数优先，平点比牌级）；异花色时后手只有出主牌才能吃掉首家
func ResolveTrick(first, second TableMove, trumpSuit Suit) TrickResult {
	points := first.Card.Points() + second.Card.Points()

	var winner int
	if first.Card.Suit == second.Card.Suit {
		if second.Card.Strength() > first.Card.Strength() {
			winner = second.Seat
		} else {
			winner = first.Seat
		}
	} else if second.Card.Suit == trumpSuit {
		winner = second.Seat
	} else {
		winner = first.Seat
	}

	return TrickResult{WinnerSeat: winner, Points: points}
}

// DrawAfterTrick 墩后补牌：赢家先摸，输家后摸
// 牌堆摸空后轮到主牌指示牌；两者都空则不再补牌，进入跟花阶段
func DrawAfterTrick(dm *DeckManager, winner *PlayerImage, loser *PlayerImage) {
	if c, ok := dm.Draw(); ok {
		winner.AddCard(c)
	}
	if c, ok := dm.Draw(); ok {
		loser.AddCard(c)
	}
}

// IsRoundOver 两手牌都打空即回合结束
func IsRoundOver(hand1, hand2 []Card) bool {
	return len(hand1) == 0 && len(hand2) == 0
}

// ClassifyMarks 回合结束时赢家记的划数
// 60 平不记划（调用方应以 winningScore > 60 为前提，传 60 返回 0）
func ClassifyMarks(winningScore, winsNeeded int) int {
	switch {
	case winningScore >= fullSweepScore:
		return winsNeeded
	case winningScore >= doubleMarkMin:
		return 2
	case winningScore >= singleMarkMin:
		return 1
	default:
		return 0
	}
}
