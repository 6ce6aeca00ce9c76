package protocol

import "encoding/json"

// Message 基础消息结构
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MessageType 消息类型
type MessageType string

// 客户端 → 服务端 消息类型
const (
	// 连接操作
	MsgPing MessageType = "ping" // 心跳 ping

	// 房间操作
	MsgJoinRoom  MessageType = "join_room"  // 进入房间（断线重连同样使用）
	MsgLeaveRoom MessageType = "leave_room" // 离开房间，座位保留

	// 游戏操作
	MsgPlayCards      MessageType = "play_cards"      // 出牌
	MsgPassTurn       MessageType = "pass_turn"       // 不出
	MsgDoublingChoice MessageType = "doubling_choice" // 加倍选择
	MsgSurrender      MessageType = "surrender"       // 认输
	MsgHint           MessageType = "hint"            // 出牌提示
	MsgChat           MessageType = "chat"            // 聊天消息（双向）
)

// 服务端 → 客户端 消息类型
const (
	// 连接相关
	MsgConnected     MessageType = "connected"      // 连接成功
	MsgPong          MessageType = "pong"           // 心跳 pong
	MsgPlayerOffline MessageType = "player_offline" // 玩家掉线通知
	MsgPlayerOnline  MessageType = "player_online"  // 玩家上线通知

	// 房间相关
	MsgJoined    MessageType = "joined"     // 进入房间成功
	MsgLeft      MessageType = "left"       // 离开房间成功
	MsgRoomState MessageType = "room_state" // 房间公开状态
	MsgYourHand  MessageType = "your_hand"  // 自己的手牌（仅发给本人）

	// 游戏流程
	MsgAck            MessageType = "ack"             // 操作已受理
	MsgGameStarted    MessageType = "game_started"    // 发牌完成，进入加倍
	MsgDoublingUpdate MessageType = "doubling_update" // 加倍公开视图
	MsgPlayRejected   MessageType = "play_rejected"   // 操作被拒绝
	MsgHintResult     MessageType = "hint_result"     // 提示结果
	MsgGameOver       MessageType = "game_over"       // 游戏结束
	MsgGameAborted    MessageType = "game_aborted"    // 对局异常终止

	// 错误
	MsgError MessageType = "error" // 错误消息
)

// clientTypes 客户端可以发送的消息类型
var clientTypes = map[MessageType]bool{
	MsgPing:           true,
	MsgJoinRoom:       true,
	MsgLeaveRoom:      true,
	MsgPlayCards:      true,
	MsgPassTurn:       true,
	MsgDoublingChoice: true,
	MsgSurrender:      true,
	MsgHint:           true,
	MsgChat:           true,
}

// IsClientType 判断是否为客户端可发送的消息
func IsClientType(t MessageType) bool {
	return clientTypes[t]
}
