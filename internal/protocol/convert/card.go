package convert

import (
	"fmt"

	"github.com/palemoky/spade-three/internal/game/card"
	"github.com/palemoky/spade-three/internal/protocol"
)

// CardToInfo 将 card.Card 转换为 protocol.CardInfo
func CardToInfo(c card.Card) protocol.CardInfo {
	return protocol.CardInfo{
		Suit: c.Suit.Name(),
		Rank: c.Rank.String(),
	}
}

// CardsToInfos 将 []card.Card 转换为 []protocol.CardInfo
func CardsToInfos(cards []card.Card) []protocol.CardInfo {
	infos := make([]protocol.CardInfo, len(cards))
	for i, c := range cards {
		infos[i] = CardToInfo(c)
	}
	return infos
}

// InfoToCard 将 protocol.CardInfo 转换为 card.Card，拒绝一副牌中不存在的牌
func InfoToCard(info protocol.CardInfo) (card.Card, error) {
	s, err := card.ParseSuit(info.Suit)
	if err != nil {
		return card.Card{}, err
	}
	r, err := card.ParseRank(info.Rank)
	if err != nil {
		return card.Card{}, err
	}
	c := card.Card{Suit: s, Rank: r}
	if !c.Valid() {
		return card.Card{}, fmt.Errorf("不存在的牌: %s %s", info.Suit, info.Rank)
	}
	return c, nil
}

// InfosToCards 将 []protocol.CardInfo 转换为 []card.Card
func InfosToCards(infos []protocol.CardInfo) ([]card.Card, error) {
	cards := make([]card.Card, len(infos))
	for i, info := range infos {
		c, err := InfoToCard(info)
		if err != nil {
			return nil, err
		}
		cards[i] = c
	}
	return cards, nil
}
