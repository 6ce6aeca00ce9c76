package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/palemoky/spade-three/internal/protocol"
)

// NewMessage 创建一个新消息，payload 编码为 JSON
func NewMessage(msgType protocol.MessageType, payload any) (*protocol.Message, error) {
	msg := &protocol.Message{Type: msgType}
	if payload == nil {
		return msg, nil
	}

	buf := GetBuffer()
	defer PutBuffer(buf)

	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", msgType, err)
	}
	// Encoder 会追加换行，且 buf 会被复用，必须复制
	msg.Payload = bytes.Clone(bytes.TrimRight(buf.Bytes(), "\n"))
	return msg, nil
}

// MustNewMessage 创建消息，失败时 panic
func MustNewMessage(msgType protocol.MessageType, payload any) *protocol.Message {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		panic(err)
	}
	return msg
}

// Encode 将消息编码为 JSON 字节
func Encode(m *protocol.Message) ([]byte, error) {
	return json.Marshal(m)
}

// Decode 从 JSON 字节解码消息
// 注意: 使用完毕后可调用 PutMessage 归还对象到池
func Decode(data []byte) (*protocol.Message, error) {
	msg := GetMessage()
	if err := json.Unmarshal(data, msg); err != nil {
		PutMessage(msg)
		return nil, err
	}
	if msg.Type == "" {
		PutMessage(msg)
		return nil, fmt.Errorf("message without type")
	}
	return msg, nil
}

// ParsePayload 解析消息的 Payload 到指定类型
func ParsePayload[T any](msg *protocol.Message) (*T, error) {
	var payload T
	if len(msg.Payload) == 0 {
		return &payload, nil
	}
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// NewErrorMessage 创建错误消息
func NewErrorMessage(code int) *protocol.Message {
	return NewErrorMessageWithText(code, protocol.ErrorMessages[code])
}

// NewErrorMessageWithText 创建带自定义文本的错误消息
func NewErrorMessageWithText(code int, text string) *protocol.Message {
	return MustNewMessage(protocol.MsgError, protocol.ErrorPayload{
		Code:    code,
		Message: text,
	})
}

// NewRejectMessage 创建 play_rejected 消息
func NewRejectMessage(action protocol.MessageType, code int) *protocol.Message {
	return MustNewMessage(protocol.MsgPlayRejected, protocol.PlayRejectedPayload{
		Action:  action,
		Code:    code,
		Reason:  protocol.ErrorReasons[code],
		Message: protocol.ErrorMessages[code],
	})
}
