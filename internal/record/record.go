// Package record 持久化结束的对局
package record

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/palemoky/spade-three/internal/game/session"
)

// Sink 对局记录的存储方
type Sink interface {
	Save(ctx context.Context, rec session.Record) error
}

// ID 记录的稳定标识，同一局在各存储中一致，重试不会产生重复
func ID(rec session.Record) string {
	return rec.RoomID + ":" + strconv.FormatInt(rec.StartedAt.UnixMilli(), 10)
}

// Noop 不保存
type Noop struct{}

func (Noop) Save(context.Context, session.Record) error { return nil }

// Fanout 并发写入多个存储
type Fanout []Sink

// Save 所有存储都会尝试写入，返回第一个错误
func (f Fanout) Save(ctx context.Context, rec session.Record) error {
	var g errgroup.Group
	for _, s := range f {
		g.Go(func() error {
			if err := s.Save(ctx, rec); err != nil {
				return fmt.Errorf("%T: %w", s, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Dispatcher 异步保存对局记录，不阻塞房间协程
type Dispatcher struct {
	sink    Sink
	log     *log.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher 创建分发器，timeout 为单条记录的写入上限
func NewDispatcher(sink Sink, logger *log.Logger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{
		sink:    sink,
		log:     logger.WithPrefix("record"),
		timeout: timeout,
	}
}

// Dispatch 可直接作为房间结束回调
func (d *Dispatcher) Dispatch(rec session.Record) {
	d.wg.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.sink.Save(ctx, rec); err != nil {
			d.log.Error("保存对局记录失败", "room", rec.RoomID, "err", err)
			return
		}
		d.log.Debug("对局记录已保存", "room", rec.RoomID, "aborted", rec.Aborted)
	})
}

// Wait 等待进行中的写入完成
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
