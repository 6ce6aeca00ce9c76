package card

import (
	"errors"
	"fmt"
	"slices"
)

// ErrNotSubset 要移除的牌不在手牌中
var ErrNotSubset = errors.New("cards are not a sub-multiset of the hand")

// Sort 原地排序：点数升序，同点数花色降序
func Sort(cards []Card) {
	slices.SortFunc(cards, func(a, b Card) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		default:
			return 0
		}
	})
}

// Sorted 返回排好序的副本
func Sorted(cards []Card) []Card {
	out := slices.Clone(cards)
	Sort(out)
	return out
}

// countCards 按 (花色, 点数) 计数
func countCards(cards []Card) map[Card]int {
	counts := make(map[Card]int, len(cards))
	for _, c := range cards {
		counts[c]++
	}
	return counts
}

// Contains 判断 subset 是否是 hand 的子多重集
func Contains(hand, subset []Card) bool {
	counts := countCards(hand)
	for _, c := range subset {
		if counts[c] == 0 {
			return false
		}
		counts[c]--
	}
	return true
}

// Remove 从手牌中移除 subset，返回新手牌。subset 不在手牌中时返回错误且不修改 hand。
func Remove(hand, subset []Card) ([]Card, error) {
	toRemove := countCards(subset)
	result := make([]Card, 0, len(hand))
	for _, c := range hand {
		if toRemove[c] > 0 {
			toRemove[c]--
			continue
		}
		result = append(result, c)
	}
	for c, n := range toRemove {
		if n > 0 {
			return nil, fmt.Errorf("%w: missing %s", ErrNotSubset, c)
		}
	}
	return result, nil
}

// GroupByRank 按点数分组，组按点数升序，组内按花色降序
func GroupByRank(cards []Card) [][]Card {
	sorted := Sorted(cards)
	var groups [][]Card
	for i := 0; i < len(sorted); {
		j := i
		for j < len(sorted) && sorted[j].Rank == sorted[i].Rank {
			j++
		}
		groups = append(groups, sorted[i:j])
		i = j
	}
	return groups
}
