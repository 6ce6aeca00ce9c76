package session

import (
	"time"

	"github.com/palemoky/spade-three/internal/game/card"
	"github.com/palemoky/spade-three/internal/game/rule"
)

// SeatCount 每桌固定 4 个座位
const SeatCount = 4

// NoSeat 表示没有座位/队伍
const NoSeat = -1

// Status 对局状态
type Status int

const (
	StatusWaiting Status = iota
	StatusDealing
	StatusDoubling
	StatusPlaying
	StatusFinished
	StatusAborted
)

var statusNames = map[Status]string{
	StatusWaiting:  "waiting",
	StatusDealing:  "dealing",
	StatusDoubling: "doubling",
	StatusPlaying:  "playing",
	StatusFinished: "finished",
	StatusAborted:  "aborted",
}

func (s Status) String() string {
	return statusNames[s]
}

// Choice 加倍选项
type Choice int

const (
	ChoiceUnset Choice = iota
	ChoiceNone
	ChoiceDouble
	ChoiceTriple
	ChoiceAntiDouble
)

var choiceNames = map[Choice]string{
	ChoiceUnset:      "unset",
	ChoiceNone:       "none",
	ChoiceDouble:     "double",
	ChoiceTriple:     "triple",
	ChoiceAntiDouble: "antiDouble",
}

func (c Choice) String() string {
	return choiceNames[c]
}

// ParseChoice 解析协议中的加倍选项
func ParseChoice(s string) (Choice, bool) {
	for c, name := range choiceNames {
		if name == s && c != ChoiceUnset {
			return c, true
		}
	}
	return ChoiceUnset, false
}

// Seat 大厅交给引擎的入座信息
type Seat struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// Player 座位上的玩家
type Player struct {
	PlayerID  string
	UserID    string
	Name      string
	Seat      int
	Team      int
	Hand      []card.Card
	CanAct    bool
	HasPassed bool
	Choice    Choice
}

// TableState 桌面上仍然有效的一手牌
type TableState struct {
	LastPlayed []card.Card
	LastType   rule.PlayType
	LastSeat   int
}

// Empty 桌面为空表示新一轮，没有压牌约束
func (t TableState) Empty() bool {
	return len(t.LastPlayed) == 0
}

// Ballot 加倍投票
type Ballot struct {
	Round   int
	First   [SeatCount]Choice // 第一轮选择
	Second  [SeatCount]Choice // 第二轮（反加倍）选择
	Asked   [SeatCount]bool   // 当前轮需要作答的座位
	Order   []int             // 当前轮的提交顺序
	Doubler int
	Counter int // 反加倍者
}

// HistoryKind 出牌记录类型
type HistoryKind string

const (
	KindPlay      HistoryKind = "play"
	KindPass      HistoryKind = "pass"
	KindSurrender HistoryKind = "surrender"
)

// HistoryEntry 出牌记录（只追加）
type HistoryEntry struct {
	Seat     int           `json:"seat"`
	PlayerID string        `json:"player_id"`
	Kind     HistoryKind   `json:"kind"`
	Cards    []card.Card   `json:"cards,omitempty"`
	Type     rule.PlayType `json:"type,omitempty"`
	Trick    int           `json:"trick"`
	Auto     bool          `json:"auto,omitempty"` // 超时托管
	At       time.Time     `json:"at"`
}
