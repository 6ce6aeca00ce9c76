package rule

import (
	"errors"

	"github.com/palemoky/spade-three/internal/game/card"
)

// PlayType 定义牌型
type PlayType int

const (
	Invalid PlayType = iota
	Single           // 单张
	Pair             // 对子
	Triple           // 三张
	Bomb             // 炸弹（四张相同）
)

// playTypeNames 协议中使用的牌型名称
var playTypeNames = map[PlayType]string{
	Invalid: "invalid",
	Single:  "single",
	Pair:    "pair",
	Triple:  "triple",
	Bomb:    "bomb",
}

func (t PlayType) String() string {
	if name, ok := playTypeNames[t]; ok {
		return name
	}
	return "invalid"
}

// MarshalText 记录中以名称保存牌型
func (t PlayType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText 解析牌型名称，未知名称视为 invalid
func (t *PlayType) UnmarshalText(b []byte) error {
	*t = Invalid
	for pt, name := range playTypeNames {
		if name == string(b) {
			*t = pt
			break
		}
	}
	return nil
}

// Size 牌型对应的张数
func (t PlayType) Size() int {
	if t == Invalid {
		return 0
	}
	return int(t)
}

// Ordering 比较结果
type Ordering int

const (
	Less    Ordering = -1
	Equal   Ordering = 0
	Greater Ordering = 1
)

func (o Ordering) String() string {
	switch o {
	case Less:
		return "less"
	case Greater:
		return "greater"
	default:
		return "equal"
	}
}

// ErrTypeMismatch 牌型不同或无效时无法比较
var ErrTypeMismatch = errors.New("plays of different types cannot be compared")

// Classify 判定牌型：1~4 张同点数的牌分别为单张、对子、三张、炸弹
func Classify(cards []card.Card) PlayType {
	if len(cards) == 0 || len(cards) > 4 {
		return Invalid
	}
	for _, c := range cards[1:] {
		if c.Rank != cards[0].Rank {
			return Invalid
		}
	}
	return PlayType(len(cards))
}

// top 找出决定大小的牌：最大点数，同点数取花色最大的一张
func top(cards []card.Card) card.Card {
	best := cards[0]
	for _, c := range cards[1:] {
		if c.Rank.Weight() > best.Rank.Weight() ||
			(c.Rank == best.Rank && c.Suit.Weight() > best.Suit.Weight()) {
			best = c
		}
	}
	return best
}

// Compare 比较两手同牌型的牌
func Compare(a, b []card.Card) (Ordering, error) {
	ta, tb := Classify(a), Classify(b)
	if ta == Invalid || ta != tb {
		return Equal, ErrTypeMismatch
	}

	ca, cb := top(a), top(b)
	switch {
	case ca.Rank.Weight() > cb.Rank.Weight():
		return Greater, nil
	case ca.Rank.Weight() < cb.Rank.Weight():
		return Less, nil
	}

	// 王牌之间不比花色
	if ca.Suit == card.Joker {
		return Equal, nil
	}
	switch {
	case ca.Suit.Weight() > cb.Suit.Weight():
		return Greater, nil
	case ca.Suit.Weight() < cb.Suit.Weight():
		return Less, nil
	}
	return Equal, nil
}

// CanBeat 判断 cards 是否能压过 last；last 为空时只需牌型有效
func CanBeat(cards, last []card.Card) bool {
	t := Classify(cards)
	if t == Invalid {
		return false
	}
	if len(last) == 0 {
		return true
	}
	o, err := Compare(cards, last)
	return err == nil && o == Greater
}
