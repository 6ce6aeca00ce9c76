package card

import (
	crand "crypto/rand"
	"fmt"
	"math/rand/v2"
	"strconv"
)

// Suit 定义花色
type Suit int

// Rank 定义点数
type Rank int

// Card 定义一张牌，按值传递，不可变
type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

const (
	Club    Suit = iota + 1 // 梅花
	Diamond                 // 方块
	Heart                   // 红心
	Spade                   // 黑桃
	Joker                   // 王牌
)

// DeckSize 一副完整牌的张数
const DeckSize = 54

// suitSymbols 花色符号映射表
var suitSymbols = map[Suit]string{
	Spade:   "♠",
	Heart:   "♥",
	Club:    "♣",
	Diamond: "♦",
	Joker:   "",
}

// suitNames 协议中使用的花色名称
var suitNames = map[Suit]string{
	Spade:   "spade",
	Heart:   "heart",
	Diamond: "diamond",
	Club:    "club",
	Joker:   "joker",
}

func (s Suit) String() string {
	if symbol, ok := suitSymbols[s]; ok {
		return symbol
	}
	return ""
}

// Name 返回协议花色名称
func (s Suit) Name() string {
	return suitNames[s]
}

// Weight 花色权重，仅用于同点数比较。王牌为 0，不参与比较。
func (s Suit) Weight() int {
	switch s {
	case Spade:
		return 4
	case Heart:
		return 3
	case Diamond:
		return 2
	case Club:
		return 1
	default:
		return 0
	}
}

// ParseSuit 解析协议花色名称
func ParseSuit(name string) (Suit, error) {
	for s, n := range suitNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("无法识别的花色: %q", name)
}

const (
	Rank3 Rank = iota + 3
	Rank4
	Rank5
	Rank6
	Rank7
	Rank8
	Rank9
	Rank10
	RankJ // Jack
	RankQ // Queen
	RankK // King
	RankA // Ace
	Rank2
	RankBlackJoker // 小王
	RankRedJoker   // 大王
)

// rankNames 牌面值字符串映射表
var rankNames = map[Rank]string{
	Rank3:          "3",
	Rank4:          "4",
	Rank5:          "5",
	Rank6:          "6",
	Rank7:          "7",
	Rank8:          "8",
	Rank9:          "9",
	Rank10:         "10",
	RankJ:          "J",
	RankQ:          "Q",
	RankK:          "K",
	RankA:          "A",
	Rank2:          "2",
	RankBlackJoker: "BJ",
	RankRedJoker:   "RJ",
}

func (r Rank) String() string {
	if name, ok := rankNames[r]; ok {
		return name
	}
	return strconv.Itoa(int(r))
}

// Weight 点数权重：3 最小，2 之后是小王、大王
func (r Rank) Weight() int {
	return int(r)
}

// ParseRank 解析协议点数
func ParseRank(name string) (Rank, error) {
	for r, n := range rankNames {
		if n == name {
			return r, nil
		}
	}
	return 0, fmt.Errorf("无法识别的点数: %q", name)
}

// Valid 判断是否是一副牌中存在的牌
func (c Card) Valid() bool {
	if c.Suit == Joker {
		return c.Rank == RankBlackJoker || c.Rank == RankRedJoker
	}
	return c.Suit >= Club && c.Suit <= Spade && c.Rank >= Rank3 && c.Rank <= Rank2
}

func (c Card) String() string {
	if c.Suit == Joker {
		if c.Rank == RankRedJoker {
			return "大王"
		}
		return "小王"
	}
	return c.Suit.String() + c.Rank.String()
}

// Less 手牌排序规则：点数升序，同点数按花色降序
func (c Card) Less(o Card) bool {
	if c.Rank != o.Rank {
		return c.Rank.Weight() < o.Rank.Weight()
	}
	return c.Suit.Weight() > o.Suit.Weight()
}

// SpadeThree 决定先手的黑桃 3
var SpadeThree = Card{Suit: Spade, Rank: Rank3}

// NewDeck 按固定顺序生成 54 张牌
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for _, s := range []Suit{Spade, Heart, Diamond, Club} {
		for r := Rank3; r <= Rank2; r++ {
			deck = append(deck, Card{Suit: s, Rank: r})
		}
	}
	deck = append(deck,
		Card{Suit: Joker, Rank: RankBlackJoker},
		Card{Suit: Joker, Rank: RankRedJoker},
	)
	return deck
}

// NewShuffler 返回以 crypto/rand 播种的 ChaCha8 随机源
func NewShuffler() *rand.Rand {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		panic(fmt.Sprintf("card: read random seed: %v", err))
	}
	return rand.New(rand.NewChaCha8(seed))
}

// Shuffle Fisher–Yates 洗牌，原地修改
func Shuffle(deck []Card, r *rand.Rand) {
	for i := len(deck) - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
}
