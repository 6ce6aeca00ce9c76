package client

import "github.com/palemoky/spade-three/internal/game/card"

// CardCounter 记牌器：统计自己手牌之外、尚未打出的牌
type CardCounter struct {
	remaining map[card.Rank]int
	hand      map[card.Rank]int
	played    [4]int // 各座位已出牌张数
}

// NewCardCounter 创建记牌器
func NewCardCounter() *CardCounter {
	cc := &CardCounter{}
	cc.Reset()
	return cc
}

// Reset 按整副牌（54 张）初始化
func (cc *CardCounter) Reset() {
	cc.remaining = make(map[card.Rank]int)
	cc.hand = make(map[card.Rank]int)
	cc.played = [4]int{}
	for rank := card.Rank3; rank <= card.Rank2; rank++ {
		cc.remaining[rank] = 4
	}
	cc.remaining[card.RankBlackJoker] = 1
	cc.remaining[card.RankRedJoker] = 1
}

// SetHand 更新自己的手牌，手牌中的牌不计入剩余
func (cc *CardCounter) SetHand(hand []card.Card) {
	cc.hand = make(map[card.Rank]int)
	for _, c := range hand {
		cc.hand[c.Rank]++
	}
}

// Observe 记录桌面上别人打出的牌
func (cc *CardCounter) Observe(seat int, cards []card.Card) {
	for _, c := range cards {
		if cc.remaining[c.Rank] > 0 {
			cc.remaining[c.Rank]--
		}
	}
	if seat >= 0 && seat < len(cc.played) {
		cc.played[seat] += len(cards)
	}
}

// Remaining 某个点数在其他玩家手中可能剩余的张数
func (cc *CardCounter) Remaining(rank card.Rank) int {
	return max(cc.remaining[rank]-cc.hand[rank], 0)
}

// GetRemaining 所有点数的剩余张数
func (cc *CardCounter) GetRemaining() map[card.Rank]int {
	out := make(map[card.Rank]int, len(cc.remaining))
	for rank := range cc.remaining {
		out[rank] = cc.Remaining(rank)
	}
	return out
}

// Played 某个座位已经出过的张数
func (cc *CardCounter) Played(seat int) int {
	if seat < 0 || seat >= len(cc.played) {
		return 0
	}
	return cc.played[seat]
}
