package codec

import (
	"bytes"
	"sync"

	"github.com/palemoky/spade-three/internal/protocol"
)

// 超过该容量的缓冲区不回收，偶发的大消息不会让池子一直占着内存
const maxPooledBuffer = 64 << 10

var (
	messages = sync.Pool{New: func() any { return new(protocol.Message) }}
	buffers  = sync.Pool{New: func() any { return new(bytes.Buffer) }}
)

// GetMessage 从池中取一个空消息
func GetMessage() *protocol.Message {
	return messages.Get().(*protocol.Message)
}

// PutMessage 清空后归还，之后不能再使用 msg
func PutMessage(msg *protocol.Message) {
	if msg == nil {
		return
	}
	*msg = protocol.Message{}
	messages.Put(msg)
}

// GetBuffer 取一个编码用缓冲区
func GetBuffer() *bytes.Buffer {
	return buffers.Get().(*bytes.Buffer)
}

// PutBuffer 重置后归还，保留容量
func PutBuffer(buf *bytes.Buffer) {
	if buf == nil {
		return
	}
	buf.Reset()
	if buf.Cap() > maxPooledBuffer {
		return
	}
	buffers.Put(buf)
}
