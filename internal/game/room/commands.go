package room

import (
	"errors"

	"github.com/palemoky/spade-three/internal/apperrors"
	"github.com/palemoky/spade-three/internal/game/session"
	"github.com/palemoky/spade-three/internal/protocol"
	"github.com/palemoky/spade-three/internal/protocol/codec"
	"github.com/palemoky/spade-three/internal/protocol/convert"
	"github.com/palemoky/spade-three/internal/types"
)

// handle 在房间协程中执行一条命令
func (r *Room) handle(cmd Command) error {
	var err error
	switch cmd.Type {
	case CmdAttach:
		err = r.handleAttach(cmd.Client)
	case CmdDetach:
		err = r.handleDetach(cmd.Client)
	case CmdHint:
		err = r.handleHint(cmd.Client)
	case CmdChat:
		err = r.handleChat(cmd.Client, cmd.Text)
	case cmdClose:
		r.handleClose(cmd.Text)
		return nil
	case CmdPlay, CmdPass, CmdChoose, CmdSurrender, cmdExpire:
		err = r.apply(cmd)
	default:
		err = apperrors.ErrInvalidPhase
	}
	r.touch()
	return err
}

// seatOf 命令发起者的座位
func (r *Room) seatOf(c types.ClientInterface) (int, error) {
	if c == nil {
		return session.NoSeat, apperrors.ErrNotSeated
	}
	seat, ok := r.gs.SeatOf(c.GetUserID())
	if !ok {
		return session.NoSeat, apperrors.ErrNotSeated
	}
	return seat, nil
}

// apply 执行改变对局状态的命令。
// 规则错误直接返回，状态未变且不广播；不变量被破坏时终止对局。
func (r *Room) apply(cmd Command) error {
	var publish func()

	if cmd.Type == cmdExpire {
		if cmd.gen != r.gen || r.gs.Done() {
			return nil // 过期的计时器
		}
		status := r.gs.Status()
		out, err := r.gs.Expire()
		if err != nil {
			return r.fail(err)
		}
		r.log.Info("⏰ 行动超时，自动处理", "status", status, "seats", out.Seats, "played", len(out.Played))
		publish = func() {
			if status == session.StatusDoubling {
				r.broadcastDoubling()
				if out.Ballot.Resolved {
					r.broadcastState()
				}
				return
			}
			if len(out.Played) > 0 {
				r.sendHand(out.Seats[0])
			}
			r.broadcastState()
		}
	} else {
		seat, err := r.seatOf(cmd.Client)
		if err != nil {
			return err
		}

		switch cmd.Type {
		case CmdPlay:
			if _, err := r.gs.Play(seat, cmd.Cards); err != nil {
				return r.fail(err)
			}
			publish = func() {
				r.sendHand(seat)
				r.broadcastState()
			}
		case CmdPass:
			if _, err := r.gs.Pass(seat); err != nil {
				return r.fail(err)
			}
			publish = r.broadcastState
		case CmdChoose:
			out, err := r.gs.SubmitChoice(seat, cmd.Choice)
			if err != nil {
				return r.fail(err)
			}
			publish = func() {
				r.broadcastDoubling()
				if out.Resolved {
					r.log.Info("🎲 加倍结束", "multiplier", r.gs.Multiplier())
					r.broadcastState()
				}
			}
		case CmdSurrender:
			if err := r.gs.Surrender(seat); err != nil {
				return r.fail(err)
			}
			r.log.Info("🏳️ 玩家认输", "seat", seat, "user", cmd.Client.GetUserID())
			publish = r.broadcastState
		}
	}

	if err := r.gs.CheckInvariants(); err != nil {
		return r.fail(err)
	}
	r.rearm()
	publish()
	if r.gs.Done() {
		r.finish()
	}
	return nil
}

// fail 区分可恢复错误与内部错误
func (r *Room) fail(err error) error {
	if errors.Is(err, session.ErrCorrupted) {
		r.abort(err)
		return apperrors.ErrGameAborted
	}
	return err
}

// finish 正常结束：广播结算并移交对局记录
func (r *Room) finish() {
	snap := r.gs.Snapshot()
	r.broadcast(codec.MustNewMessage(protocol.MsgGameOver, convert.GameOver(snap)))

	rec := r.gs.Record()
	r.log.Info("🏁 对局结束",
		"winning_team", rec.WinningTeam,
		"multiplier", rec.Multiplier,
		"surrendered", rec.Surrendered,
		"duration", rec.Duration)
	r.endHook(rec)
}

// abort 不变量被破坏：终止对局，广播终止信号，仍然移交部分记录
func (r *Room) abort(cause error) {
	r.gs.Abort(cause)
	r.rearm()
	r.log.Error("💥 对局异常终止", "err", cause)

	r.broadcast(codec.MustNewMessage(protocol.MsgGameAborted, protocol.GameAbortedPayload{
		RoomID: r.ID,
		Code:   protocol.ErrCodeGameAborted,
		Reason: protocol.ErrorReasons[protocol.ErrCodeGameAborted],
	}))
	r.endHook(r.gs.Record())
}

func (r *Room) endHook(rec session.Record) {
	if r.onEnd != nil {
		r.onEnd(rec)
	}
}

// handleAttach 连接进入房间：下发座位、公开状态、自己的手牌与加倍视图
func (r *Room) handleAttach(c types.ClientInterface) error {
	seat, err := r.seatOf(c)
	if err != nil {
		return err
	}

	wasOnline := r.seatOnline(seat)
	r.members[c.GetID()] = c
	c.SetRoom(r.ID)

	snap := r.gs.Snapshot()
	c.SendMessage(codec.MustNewMessage(protocol.MsgJoined, protocol.JoinedPayload{
		RoomID: r.ID,
		Seat:   seat,
		Team:   snap.Players[seat].Team,
	}))
	// 每个座位在对局进行中第一次进房时收到开局通知
	if !r.announced[seat] && (snap.Status == session.StatusDoubling || snap.Status == session.StatusPlaying) {
		r.announced[seat] = true
		c.SendMessage(codec.MustNewMessage(protocol.MsgGameStarted, convert.GameStarted(snap, r.online())))
	}
	c.SendMessage(codec.MustNewMessage(protocol.MsgRoomState, convert.RoomState(snap, r.online(), r.deadline)))
	c.SendMessage(codec.MustNewMessage(protocol.MsgYourHand, convert.YourHand(snap, seat)))
	switch snap.Status {
	case session.StatusDoubling:
		c.SendMessage(codec.MustNewMessage(protocol.MsgDoublingUpdate, convert.DoublingView(snap)))
	case session.StatusFinished:
		c.SendMessage(codec.MustNewMessage(protocol.MsgGameOver, convert.GameOver(snap)))
	}

	if !wasOnline {
		r.log.Info("📶 玩家上线", "seat", seat, "user", c.GetUserID())
		r.broadcastExcept(c.GetID(), codec.MustNewMessage(protocol.MsgPlayerOnline, r.presence(seat)))
	}
	return nil
}

// handleDetach 连接离开房间，座位保留
func (r *Room) handleDetach(c types.ClientInterface) error {
	if c == nil {
		return apperrors.ErrNotSeated
	}
	if _, ok := r.members[c.GetID()]; !ok {
		return apperrors.ErrNotSeated
	}
	delete(r.members, c.GetID())
	if c.GetRoom() == r.ID {
		c.SetRoom("")
	}
	c.SendMessage(codec.MustNewMessage(protocol.MsgLeft, protocol.LeftPayload{RoomID: r.ID}))

	if seat, ok := r.gs.SeatOf(c.GetUserID()); ok && !r.seatOnline(seat) {
		r.log.Info("📴 玩家离线", "seat", seat, "user", c.GetUserID())
		r.broadcast(codec.MustNewMessage(protocol.MsgPlayerOffline, r.presence(seat)))
	}
	return nil
}

func (r *Room) handleHint(c types.ClientInterface) error {
	seat, err := r.seatOf(c)
	if err != nil {
		return err
	}
	cards, ok, err := r.gs.Hint(seat)
	if err != nil {
		return err
	}
	c.SendMessage(codec.MustNewMessage(protocol.MsgHintResult, convert.HintResult(cards, ok)))
	return nil
}

// handleChat 聊天原样转发给房间内所有连接
func (r *Room) handleChat(c types.ClientInterface, text string) error {
	seat, err := r.seatOf(c)
	if err != nil {
		return err
	}
	r.broadcast(codec.MustNewMessage(protocol.MsgChat, protocol.ChatPayload{
		RoomID:     r.ID,
		SenderID:   c.GetUserID(),
		SenderName: c.GetName(),
		Seat:       seat,
		Content:    text,
		Time:       r.clock.Now().UnixMilli(),
	}))
	return nil
}

// handleClose 注册表移除房间前通知仍在房间里的连接
func (r *Room) handleClose(reason string) {
	if !r.gs.Done() && reason != "" {
		r.broadcast(codec.NewErrorMessageWithText(protocol.ErrCodeSessionNotFound, reason))
	}
}
