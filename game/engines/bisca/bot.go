package bisca

// Difficulty 机器人策略选择枚举
// 目前只实现了一种启发式策略，枚举作为扩展点预留
type Difficulty int

const (
	DifficultyNormal Difficulty = iota
)

// ChooseMove 确定性的机器人出牌策略，返回手牌下标
// 先手：弃掉最弱的非主牌，攒主牌和大牌；全是主牌就出最弱的主牌
// 跟牌：mustFollowSuit 时候选集收窄到跟花；优先用最小代价吃掉首家；
// 吃不动且对方的牌值得抢（非主牌且有点数）就用最弱主牌切；
// 否则弃最弱的候选牌，能弃非主牌绝不弃主牌
func ChooseMove(hand []Card, table []TableMove, trumpSuit Suit, mustFollowSuit bool) int {
	if len(hand) == 0 {
		return -1
	}
	if len(hand) == 1 {
		return 0
	}

	if len(table) == 0 {
		return chooseLead(hand, trumpSuit)
	}
	return chooseResponse(hand, table[0].Card, trumpSuit, mustFollowSuit)
}

func chooseLead(hand []Card, trumpSuit Suit) int {
	weakest := -1
	for i, c := range hand {
		if c.Suit == trumpSuit {
			continue
		}
		if weakest < 0 || c.Strength() < hand[weakest].Strength() {
			weakest = i
		}
	}
	if weakest >= 0 {
		return weakest
	}
	// 全是主牌
	return weakestIndex(hand)
}

func chooseResponse(hand []Card, lead Card, trumpSuit Suit, mustFollowSuit bool) int {
	candidates := make([]int, 0, len(hand))
	if mustFollowSuit {
		for i, c := range hand {
			if c.Suit == lead.Suit {
				candidates = append(candidates, i)
			}
		}
	}
	suitBound := len(candidates) > 0
	if !suitBound {
		for i := range hand {
			candidates = append(candidates, i)
		}
	}

	// 跟花且能压过首家：挑最小的赢牌
	cheapestWin := -1
	for _, i := range candidates {
		c := hand[i]
		if c.Suit != lead.Suit {
			continue
		}
		if c.Strength() <= lead.Strength() {
			continue
		}
		if cheapestWin < 0 || c.Strength() < hand[cheapestWin].Strength() {
			cheapestWin = i
		}
	}
	if cheapestWin >= 0 {
		return cheapestWin
	}

	// 吃不动：首家的牌值得抢且自己没被跟花约束，用最弱主牌切
	if !suitBound && lead.Suit != trumpSuit && lead.Points() > 0 {
		cheapestTrump := -1
		for _, i := range candidates {
			c := hand[i]
			if c.Suit != trumpSuit {
				continue
			}
			if cheapestTrump < 0 || c.Strength() < hand[cheapestTrump].Strength() {
				cheapestTrump = i
			}
		}
		if cheapestTrump >= 0 {
			return cheapestTrump
		}
	}

	// 弃牌：优先弃非主牌里最弱的
	weakestNonTrump := -1
	for _, i := range candidates {
		c := hand[i]
		if c.Suit == trumpSuit {
			continue
		}
		if weakestNonTrump < 0 || c.Strength() < hand[weakestNonTrump].Strength() {
			weakestNonTrump = i
		}
	}
	if weakestNonTrump >= 0 {
		return weakestNonTrump
	}
	return weakestIndexOf(hand, candidates)
}

func weakestIndex(hand []Card) int {
	best := 0
	for i := 1; i < len(hand); i++ {
		if hand[i].Strength() < hand[best].Strength() {
			best = i
		}
	}
	return best
}

func weakestIndexOf(hand []Card, candidates []int) int {
	best := candidates[0]
	for _, i := range candidates[1:] {
		if hand[i].Strength() < hand[best].Strength() {
			best = i
		}
	}
	return best
}
