package bisca

import (
	"fmt"
	"math/rand"
	"time"
)

type Suit int

const (
	Clubs Suit = iota // 梅花
	Diamonds
	Hearts
	Spades
)

func (s Suit) String() string {
	switch s {
	case Clubs:
		return "C"
	case Diamonds:
		return "D"
	case Hearts:
		return "H"
	case Spades:
		return "S"
	default:
		return "?"
	}
}

type Rank int

// 牌力升序，也是点数平局时的决胜顺序
const (
	Rank2 Rank = iota
	Rank3
	Rank4
	Rank5
	Rank6
	RankQ
	RankJ
	RankK
	Rank7
	RankA
)

func (r Rank) String() string {
	switch r {
	case Rank2:
		return "2"
	case Rank3:
		return "3"
	case Rank4:
		return "4"
	case Rank5:
		return "5"
	case Rank6:
		return "6"
	case RankQ:
		return "Q"
	case RankJ:
		return "J"
	case RankK:
		return "K"
	case Rank7:
		return "7"
	case RankA:
		return "A"
	default:
		return "?"
	}
}

const DeckSize = 40

// TotalPoints 一副牌的总点数：4*(11+10+4+3+2)
const TotalPoints = 120

// Card 不可变的牌值，只在归属集合之间移动
type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

// Points 点数是牌级的固定函数
func (c Card) Points() int {
	switch c.Rank {
	case RankA:
		return 11
	case Rank7:
		return 10
	case RankK:
		return 4
	case RankJ:
		return 3
	case RankQ:
		return 2
	default:
		return 0
	}
}

// ID 花色+牌级，全副牌唯一
func (c Card) ID() string {
	return c.Suit.String() + "-" + c.Rank.String()
}

func (c Card) String() string {
	return fmt.Sprintf("%s%s", c.Rank, c.Suit)
}

// Strength 牌力比较键：点数优先，同点数比牌级
// 规则引擎和机器人策略共用同一个比较器
func (c Card) Strength() int {
	return c.Points()*16 + int(c.Rank)
}

// TableMove 落桌的牌，带出牌方座位
type TableMove struct {
	Seat int  `json:"seat"`
	Card Card `json:"card"`
}

// DeckManager 牌库管理：洗好的余牌 + 主牌指示牌
type DeckManager struct {
	deck      []Card
	trumpCard *Card // 摸走后为 nil
	trumpSuit Suit  // 指示牌摸走后仍然有效
	rng       *rand.Rand
}

func NewDeckManager() *DeckManager {
	return &DeckManager{
		deck: make([]Card, 0, DeckSize),
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// InitRound 洗一副新牌，发牌后下一张作为主牌指示牌
// handSize 每人发牌数（3 或 9），返回两手牌
func (dm *DeckManager) InitRound(handSize int) (hand1, hand2 []Card) {
	full := newFullDeck()
	dm.rng.Shuffle(len(full), func(i, j int) {
		full[i], full[j] = full[j], full[i]
	})

	hand1 = make([]Card, 0, handSize)
	hand2 = make([]Card, 0, handSize)
	idx := 0
	for i := 0; i < handSize; i++ {
		hand1 = append(hand1, full[idx])
		idx++
		hand2 = append(hand2, full[idx])
		idx++
	}

	trump := full[idx]
	idx++
	dm.trumpCard = &trump
	dm.trumpSuit = trump.Suit

	dm.deck = dm.deck[:0]
	dm.deck = append(dm.deck, full[idx:]...)
	return hand1, hand2
}

func newFullDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for suit := Clubs; suit <= Spades; suit++ {
		for rank := Rank2; rank <= RankA; rank++ {
			deck = append(deck, Card{Suit: suit, Rank: rank})
		}
	}
	return deck
}

// Draw 从牌顶摸一张；牌堆摸空后轮到主牌指示牌，之后进入跟花阶段
func (dm *DeckManager) Draw() (Card, bool) {
	if len(dm.deck) > 0 {
		c := dm.deck[0]
		dm.deck = dm.deck[1:]
		return c, true
	}
	if dm.trumpCard != nil {
		c := *dm.trumpCard
		dm.trumpCard = nil
		return c, true
	}
	return Card{}, false
}

// Exhausted 牌堆和主牌指示牌都已摸空
func (dm *DeckManager) Exhausted() bool {
	return len(dm.deck) == 0 && dm.trumpCard == nil
}

func (dm *DeckManager) Remaining() int {
	n := len(dm.deck)
	if dm.trumpCard != nil {
		n++
	}
	return n
}

func (dm *DeckManager) TrumpSuit() Suit {
	return dm.trumpSuit
}

// TrumpCard 未被摸走的主牌指示牌，已摸走返回 nil
func (dm *DeckManager) TrumpCard() *Card {
	return dm.trumpCard
}

// RemainingPoints 牌堆加指示牌的剩余点数，判负结算用
func (dm *DeckManager) RemainingPoints() int {
	sum := 0
	for _, c := range dm.deck {
		sum += c.Points()
	}
	if dm.trumpCard != nil {
		sum += dm.trumpCard.Points()
	}
	return sum
}

// restore 从快照回填牌堆状态
func (dm *DeckManager) restore(deck []Card, trumpCard *Card, trumpSuit Suit) {
	dm.deck = append(dm.deck[:0], deck...)
	dm.trumpCard = trumpCard
	dm.trumpSuit = trumpSuit
}

// PlayerImage 一个座位的游戏状态
type PlayerImage struct {
	UserID      string
	Seat        int
	IsBot       bool
	Hand        []Card
	Score       int // 本回合点数
	Marks       int // 划数（胜局进度）
	TotalPoints int // 全场累计点数
}

func NewPlayerImage(userID string, seat int, isBot bool) *PlayerImage {
	return &PlayerImage{
		UserID: userID,
		Seat:   seat,
		IsBot:  isBot,
		Hand:   make([]Card, 0, 9),
	}
}

// RemoveCardAt 按下标移除手牌，下标非法返回 false
func (p *PlayerImage) RemoveCardAt(index int) (Card, bool) {
	if index < 0 || index >= len(p.Hand) {
		return Card{}, false
	}
	c := p.Hand[index]
	p.Hand = append(p.Hand[:index], p.Hand[index+1:]...)
	return c, true
}

func (p *PlayerImage) AddCard(c Card) {
	p.Hand = append(p.Hand, c)
}

// HasSuit 手里是否有指定花色
func (p *PlayerImage) HasSuit(suit Suit) bool {
	for _, c := range p.Hand {
		if c.Suit == suit {
			return true
		}
	}
	return false
}

// HandPoints 手牌剩余点数
func (p *PlayerImage) HandPoints() int {
	sum := 0
	for _, c := range p.Hand {
		sum += c.Points()
	}
	return sum
}
