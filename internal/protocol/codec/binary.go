package codec

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/palemoky/spade-three/internal/protocol"
)

// 二进制帧使用 protobuf 线格式的信封：
//
//	message Envelope {
//	  string type    = 1;
//	  bytes  payload = 2; // JSON payload
//	}
const (
	fieldType    protowire.Number = 1
	fieldPayload protowire.Number = 2
)

var errEmptyType = errors.New("binary frame without type")

// EncodeBinary 将消息编码为二进制帧
func EncodeBinary(m *protocol.Message) ([]byte, error) {
	if m.Type == "" {
		return nil, errEmptyType
	}
	b := make([]byte, 0, len(m.Type)+len(m.Payload)+8)
	b = protowire.AppendTag(b, fieldType, protowire.BytesType)
	b = protowire.AppendString(b, string(m.Type))
	if len(m.Payload) > 0 {
		b = protowire.AppendTag(b, fieldPayload, protowire.BytesType)
		b = protowire.AppendBytes(b, m.Payload)
	}
	return b, nil
}

// DecodeBinary 从二进制帧解码消息，忽略未知字段
func DecodeBinary(data []byte) (*protocol.Message, error) {
	msg := GetMessage()
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			PutMessage(msg)
			return nil, fmt.Errorf("decode tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == fieldType && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				PutMessage(msg)
				return nil, fmt.Errorf("decode type: %w", protowire.ParseError(n))
			}
			msg.Type = protocol.MessageType(v)
			data = data[n:]
		case num == fieldPayload && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				PutMessage(msg)
				return nil, fmt.Errorf("decode payload: %w", protowire.ParseError(n))
			}
			msg.Payload = append([]byte(nil), v...) // 复制 payload 避免引用
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				PutMessage(msg)
				return nil, fmt.Errorf("skip field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}

	if msg.Type == "" {
		PutMessage(msg)
		return nil, errEmptyType
	}
	return msg, nil
}
