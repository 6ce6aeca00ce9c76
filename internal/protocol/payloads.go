package protocol

// --- 客户端请求 Payloads ---

// PingPayload 心跳请求
type PingPayload struct {
	Timestamp int64 `json:"timestamp"` // 客户端时间戳（毫秒）
}

// JoinRoomPayload 进入房间请求。auth_token 为空时使用连接时的身份。
type JoinRoomPayload struct {
	RoomID    string `json:"room_id"`
	AuthToken string `json:"auth_token,omitempty"`
}

// RoomPayload 只携带房间号的请求：leave_room / pass_turn / surrender / hint
type RoomPayload struct {
	RoomID string `json:"room_id"`
}

// PlayCardsPayload 出牌请求
type PlayCardsPayload struct {
	RoomID string     `json:"room_id"`
	Cards  []CardInfo `json:"cards"`
}

// DoublingChoicePayload 加倍选择：none / double / triple / antiDouble
type DoublingChoicePayload struct {
	RoomID string `json:"room_id"`
	Choice string `json:"choice"`
}

// --- 服务端响应 Payloads ---

// ConnectedPayload 连接成功响应
type ConnectedPayload struct {
	ConnID string `json:"conn_id"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	RoomID string `json:"room_id,omitempty"` // 已在对局中时自动进入
}

// PongPayload 心跳响应
type PongPayload struct {
	ClientTimestamp int64 `json:"client_timestamp"` // 客户端发送的时间戳
	ServerTimestamp int64 `json:"server_timestamp"` // 服务器时间戳（毫秒）
}

// PresencePayload 玩家掉线/上线通知
type PresencePayload struct {
	RoomID string `json:"room_id"`
	Seat   int    `json:"seat"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// JoinedPayload 进入房间成功
type JoinedPayload struct {
	RoomID string `json:"room_id"`
	Seat   int    `json:"seat"`
	Team   int    `json:"team"`
}

// LeftPayload 离开房间成功
type LeftPayload struct {
	RoomID string `json:"room_id"`
}

// AckPayload 操作已受理
type AckPayload struct {
	Action MessageType `json:"action"`
}

// SeatInfo 座位公开信息，只包含手牌张数
type SeatInfo struct {
	Seat       int    `json:"seat"`
	PlayerID   string `json:"player_id"`
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	Team       int    `json:"team"`
	CardsCount int    `json:"cards_count"`
	CanAct     bool   `json:"can_act"`
	HasPassed  bool   `json:"has_passed"`
	Choice     string `json:"choice"`
	Online     bool   `json:"online"`
}

// TableInfo 桌面上仍然有效的一手牌
type TableInfo struct {
	LastPlayed []CardInfo `json:"last_played"`
	LastType   string     `json:"last_type,omitempty"`
	LastSeat   int        `json:"last_seat"`
}

// RoomStatePayload 房间公开状态
type RoomStatePayload struct {
	RoomID     string     `json:"room_id"`
	Status     string     `json:"status"`
	BaseStake  int64      `json:"base_stake"`
	Multiplier int        `json:"multiplier"`
	TurnSeat   int        `json:"turn_seat"`
	Trick      int        `json:"trick"`
	Seats      []SeatInfo `json:"seats"`
	Table      TableInfo  `json:"table"`
	Deadline   int64      `json:"deadline,omitempty"` // 当前行动截止时间（毫秒），0 表示不限时
}

// YourHandPayload 自己的手牌
type YourHandPayload struct {
	RoomID string     `json:"room_id"`
	Seat   int        `json:"seat"`
	Cards  []CardInfo `json:"cards"`
}

// GameStartedPayload 发牌完成
type GameStartedPayload struct {
	RoomID    string     `json:"room_id"`
	BaseStake int64      `json:"base_stake"`
	FirstSeat int        `json:"first_seat"` // 黑桃 3 持有者
	Seats     []SeatInfo `json:"seats"`
}

// DoublingUpdatePayload 加倍公开视图
type DoublingUpdatePayload struct {
	RoomID     string   `json:"room_id"`
	Round      int      `json:"round"`
	Pending    []int    `json:"pending"` // 当前轮尚未作答的座位
	First      []string `json:"first"`   // 第一轮各座位选择
	Second     []string `json:"second"`  // 第二轮各座位选择
	Doubler    int      `json:"doubler"`
	Counter    int      `json:"counter"`
	Multiplier int      `json:"multiplier"`
	Resolved   bool     `json:"resolved"`
}

// PlayRejectedPayload 操作被拒绝，状态未改变
type PlayRejectedPayload struct {
	Action  MessageType `json:"action"`
	Code    int         `json:"code"`
	Reason  string      `json:"reason"`
	Message string      `json:"message"`
}

// HintResultPayload 出牌提示。pass 为 true 表示没有能压过的牌。
type HintResultPayload struct {
	Cards []CardInfo `json:"cards"`
	Pass  bool       `json:"pass"`
}

// GameOverPayload 游戏结束
type GameOverPayload struct {
	RoomID      string  `json:"room_id"`
	WinningTeam int     `json:"winning_team"`
	Multiplier  int     `json:"multiplier"`
	BaseStake   int64   `json:"base_stake"`
	Scores      []int64 `json:"scores"` // 按座位
	Surrendered bool    `json:"surrendered,omitempty"`
	Duration    int64   `json:"duration"`   // 秒
	CardsLeft   []int   `json:"cards_left"` // 按座位的剩余张数
}

// GameAbortedPayload 对局异常终止，区别于 game_over
type GameAbortedPayload struct {
	RoomID string `json:"room_id"`
	Code   int    `json:"code"`
	Reason string `json:"reason"`
}

// ErrorPayload 错误响应
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ChatPayload 聊天消息，房间内原样转发
type ChatPayload struct {
	RoomID     string `json:"room_id"`
	SenderID   string `json:"sender_id,omitempty"`   // 发送者 ID (服务端填充)
	SenderName string `json:"sender_name,omitempty"` // 发送者名字 (服务端填充)
	Seat       int    `json:"seat"`                  // 发送者座位 (服务端填充)
	Content    string `json:"content"`               // 消息内容
	Time       int64  `json:"time,omitempty"`        // 发送时间 (服务端填充)
}

// --- 通用数据结构 ---

// CardInfo 牌信息
type CardInfo struct {
	Suit string `json:"suit"` // spade / heart / diamond / club / joker
	Rank string `json:"rank"` // 3..10, J, Q, K, A, 2, BJ(小王), RJ(大王)
}
