package room

import (
	"context"
	"errors"
	"time"

	"github.com/palemoky/spade-three/internal/game/session"
	"github.com/palemoky/spade-three/internal/protocol"
	"github.com/palemoky/spade-three/internal/protocol/codec"
	"github.com/palemoky/spade-three/internal/protocol/convert"
)

// online 按座位统计是否至少有一个连接
func (r *Room) online() convert.Presence {
	var p convert.Presence
	for _, c := range r.members {
		if seat, ok := r.gs.SeatOf(c.GetUserID()); ok {
			p[seat] = true
		}
	}
	return p
}

func (r *Room) seatOnline(seat int) bool {
	return r.online()[seat]
}

func (r *Room) presence(seat int) protocol.PresencePayload {
	s := r.seats[seat]
	return protocol.PresencePayload{
		RoomID: r.ID,
		Seat:   seat,
		UserID: s.UserID,
		Name:   s.Name,
	}
}

// broadcast 发送给房间内所有连接
func (r *Room) broadcast(msg *protocol.Message) {
	for _, c := range r.members {
		c.SendMessage(msg)
	}
}

func (r *Room) broadcastExcept(connID string, msg *protocol.Message) {
	for id, c := range r.members {
		if id != connID {
			c.SendMessage(msg)
		}
	}
}

// sendToSeat 只发给该座位的连接，私有手牌只走这里
func (r *Room) sendToSeat(seat int, msg *protocol.Message) {
	for _, c := range r.members {
		if s, ok := r.gs.SeatOf(c.GetUserID()); ok && s == seat {
			c.SendMessage(msg)
		}
	}
}

func (r *Room) broadcastState() {
	snap := r.gs.Snapshot()
	r.broadcast(codec.MustNewMessage(protocol.MsgRoomState, convert.RoomState(snap, r.online(), r.deadline)))
}

func (r *Room) broadcastDoubling() {
	r.broadcast(codec.MustNewMessage(protocol.MsgDoublingUpdate, convert.DoublingView(r.gs.Snapshot())))
}

func (r *Room) sendHand(seat int) {
	r.sendToSeat(seat, codec.MustNewMessage(protocol.MsgYourHand, convert.YourHand(r.gs.Snapshot(), seat)))
}

// rearm 重置行动计时器。每次状态推进都换一代，旧计时器触发后被忽略。
func (r *Room) rearm() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.gen++
	r.deadline = time.Time{}

	if r.turnTimeout <= 0 || r.gs.Done() {
		return
	}
	if s := r.gs.Status(); s != session.StatusDoubling && s != session.StatusPlaying {
		return
	}

	gen := r.gen
	r.deadline = r.clock.Now().Add(r.turnTimeout)
	r.timer = r.clock.AfterFunc(r.turnTimeout, func() {
		if err := r.Submit(context.Background(), Command{Type: cmdExpire, gen: gen}); err != nil && !errors.Is(err, ErrRoomClosed) {
			r.log.Warn("超时处理失败", "err", err)
		}
	}, "room", "turn")
}
