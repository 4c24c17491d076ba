package lindad

import (
	"time"

	"github.com/Sergeij2000/lanes/errs"
	"github.com/Sergeij2000/lanes/g"
	"github.com/Sergeij2000/lanes/mlog"
	"github.com/Sergeij2000/lanes/wire"
	"github.com/panjf2000/gnet/v2"
)

// dispatch 区分快慢: 阻塞操作丢协程走 AsyncWrite,
// 立等可取的就在事件循环里做完直接回
func (s *Server) dispatch(c gnet.Conn, req *wire.Request) {
	if s.blocking(req) {
		g.Go("lindad "+req.Op, func() {
			s.replyAsync(c, s.handle(req))
		})
		return
	}
	s.replySync(c, s.handle(req))
}

func (s *Server) blocking(req *wire.Request) bool {
	switch req.Op {
	case wire.OpPush, wire.OpPop, wire.OpPopN:
		return req.Timeout != 0
	}
	return false
}

// waitFor 客户端想等多久服务端说了不算, 无限等和超限都压到上限,
// 等不到的那轮客户端自己会再来。比较放在毫秒整数域,
// 乘 Millisecond 会回绕成负数的量级也按超限算
func (s *Server) waitFor(ms int64) time.Duration {
	if ms < 0 || ms > s.opt.MaxTimeout.Milliseconds() {
		return s.opt.MaxTimeout
	}
	return time.Duration(ms) * time.Millisecond
}

func (s *Server) handle(req *wire.Request) *wire.Response {
	rsp := &wire.Response{Seq: req.Seq}
	if req.Key == "" && req.Op != wire.OpPing && req.Op != wire.OpDump {
		rsp.Err = errs.BadKey.Error()
		return rsp
	}
	l := s.linda(req.Linda)
	switch req.Op {
	case wire.OpPush:
		if len(req.Vals) == 0 {
			rsp.Ok = true
			break
		}
		rsp.Ok = l.Push(s.waitFor(req.Timeout), req.Key, req.Vals...)
	case wire.OpPop:
		if v, ok := l.Pop(s.waitFor(req.Timeout), req.Key); ok {
			rsp.Ok, rsp.Vals = true, []any{v}
		}
	case wire.OpPopN:
		n := int(req.Count)
		if n <= 0 {
			rsp.Err = errs.BadCount.Error()
			break
		}
		if vs, ok := l.PopBatch(s.waitFor(req.Timeout), req.Key, n); ok {
			rsp.Ok, rsp.Vals = true, vs
		}
	case wire.OpPeek:
		if v, ok := l.Peek(req.Key); ok {
			rsp.Ok, rsp.Vals = true, []any{v}
		}
	case wire.OpSet:
		l.Replace(req.Key, req.Vals...)
		rsp.Ok = true
	case wire.OpCap:
		l.SetCapacity(req.Key, int(req.Count))
		rsp.Ok = true
	case wire.OpDump:
		snap := l.Dump(req.Key)
		vals := make(map[string]any, len(snap))
		for k, vs := range snap {
			vals[k] = vs
		}
		rsp.Ok, rsp.Vals = true, []any{vals}
	case wire.OpPing:
		rsp.Ok = true
	default:
		rsp.Err = errs.BadOp.Printf("op=%s", req.Op).Error()
	}
	return rsp
}

func (s *Server) replySync(c gnet.Conn, rsp *wire.Response) {
	frame, err := wire.EncodeResponse(rsp)
	if err != nil {
		mlog.Errorf("lindad encode rsp seq=%d: %v", rsp.Seq, err)
		return
	}
	if _, err = c.Write(frame); err != nil {
		mlog.Errorf("lindad write rsp seq=%d: %v", rsp.Seq, err)
	}
}

func (s *Server) replyAsync(c gnet.Conn, rsp *wire.Response) {
	frame, err := wire.EncodeResponse(rsp)
	if err != nil {
		mlog.Errorf("lindad encode rsp seq=%d: %v", rsp.Seq, err)
		return
	}
	err = c.AsyncWrite(frame, func(_ gnet.Conn, werr error) error {
		if werr != nil {
			mlog.Errorf("lindad async write rsp seq=%d: %v", rsp.Seq, werr)
		}
		return nil
	})
	if err != nil {
		mlog.Errorf("lindad async write rsp seq=%d: %v", rsp.Seq, err)
	}
}
