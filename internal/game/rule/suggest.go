package rule

import (
	"slices"

	"github.com/palemoky/spade-three/internal/game/card"
)

// Suggest 返回能压过 last 的最小出牌。
// last 为空时返回最小的单张；没有能压过的牌时返回 false。
func Suggest(hand, last []card.Card) ([]card.Card, bool) {
	if len(hand) == 0 {
		return nil, false
	}

	groups := card.GroupByRank(hand)
	if len(last) == 0 {
		// 组内花色降序，取最后一张即该点数最小花色
		g := groups[0]
		return []card.Card{g[len(g)-1]}, true
	}

	t := Classify(last)
	if t == Invalid {
		return nil, false
	}
	n := t.Size()

	for _, g := range groups {
		if len(g) < n {
			continue
		}
		// 取该点数最小的 n 张，不行再取最大的 n 张
		low := slices.Clone(g[len(g)-n:])
		if CanBeat(low, last) {
			return low, true
		}
		high := slices.Clone(g[:n])
		if CanBeat(high, last) {
			return high, true
		}
	}
	return nil, false
}
