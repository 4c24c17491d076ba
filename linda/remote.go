package linda

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Sergeij2000/lanes/discovery"
	"github.com/Sergeij2000/lanes/errs"
	"github.com/Sergeij2000/lanes/mlog"
	"github.com/Sergeij2000/lanes/wire"
	"github.com/rs/xid"
)

const (
	dialTimeout = 5 * time.Second
	// Forever 在远端按长轮询拆成一轮轮有限等待
	pollWindow = 30 * time.Second
	// 应答兜底 = 请求超时 + 这个余量
	replyGrace = 5 * time.Second
)

var _ Linda = (*Remote)(nil)

// Remote 通过 lindad 访问远端槽位空间, 同一 addr+name 的句柄等价
type Remote struct {
	*net.TCPConn
	addr      string
	name      string
	tag       string // 本端标识, 日志用
	genSeq    atomic.Uint32
	pending   map[uint32]chan *wire.Response
	mtx       sync.Mutex
	sendCh    chan []byte
	quit      chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
}

// DialService 先从注册中心解析地址再Dial, service 形如 "main" 或 "main:uuid"
func DialService(d discovery.Discovery, service, name string) (*Remote, error) {
	addr, err := d.Lookup(service)
	if err != nil {
		return nil, err
	}
	return Dial(addr, name)
}

func Dial(addr, name string) (*Remote, error) {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, err
	}
	r := &Remote{
		TCPConn: conn.(*net.TCPConn),
		addr:    addr,
		name:    name,
		tag:     xid.New().String(),
		pending: make(map[uint32]chan *wire.Response),
		sendCh:  make(chan []byte, 1024),
		quit:    make(chan struct{}),
	}
	go r.sendLoop()
	go r.readLoop()
	mlog.Debugf("linda remote %s dial %s name=%s", r.tag, addr, name)
	return r, nil
}

func (r *Remote) Ident() string {
	return fmt.Sprintf("tcp://%s#%s", r.addr, r.name)
}

func (r *Remote) Push(timeout time.Duration, key string, vals ...any) bool {
	if len(vals) == 0 {
		return true
	}
	rsp := r.blockingOp(wire.OpPush, key, timeout, 0, vals)
	return rsp != nil && rsp.Ok
}

func (r *Remote) Pop(timeout time.Duration, key string) (any, bool) {
	rsp := r.blockingOp(wire.OpPop, key, timeout, 0, nil)
	if rsp == nil || !rsp.Ok || len(rsp.Vals) == 0 {
		return nil, false
	}
	return rsp.Vals[0], true
}

func (r *Remote) PopBatch(timeout time.Duration, key string, n int) ([]any, bool) {
	if n <= 0 {
		return nil, false
	}
	rsp := r.blockingOp(wire.OpPopN, key, timeout, int64(n), nil)
	if rsp == nil || !rsp.Ok {
		return nil, false
	}
	return rsp.Vals, true
}

func (r *Remote) Peek(key string) (any, bool) {
	rsp := r.syncOp(wire.OpPeek, key, 0, nil)
	if rsp == nil || !rsp.Ok || len(rsp.Vals) == 0 {
		return nil, false
	}
	return rsp.Vals[0], true
}

func (r *Remote) Replace(key string, vals ...any) {
	// 同步等应答, 保证后续读能看到替换结果
	r.syncOp(wire.OpSet, key, 0, vals)
}

func (r *Remote) SetCapacity(key string, n int) {
	r.syncOp(wire.OpCap, key, int64(n), nil)
}

// Dump 导出远端槽位快照
func (r *Remote) Dump(prefix string) map[string][]any {
	rsp := r.syncOp(wire.OpDump, prefix, 0, nil)
	if rsp == nil || !rsp.Ok || len(rsp.Vals) == 0 {
		return nil
	}
	raw, ok := rsp.Vals[0].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string][]any, len(raw))
	for k, v := range raw {
		if vs, ok := v.([]any); ok {
			out[k] = vs
		}
	}
	return out
}

func (r *Remote) Ping() bool {
	rsp := r.syncOp(wire.OpPing, "", 0, nil)
	return rsp != nil && rsp.Ok
}

func (r *Remote) Close() error {
	r.shutdown(nil)
	return nil
}

func (r *Remote) blockingOp(op, key string, timeout time.Duration, count int64, vals []any) *wire.Response {
	if timeout >= 0 {
		return r.doOp(op, key, timeout, count, vals)
	}
	// 无限等: 一轮一轮长轮询, 避免服务端挂死协程
	for {
		rsp := r.doOp(op, key, pollWindow, count, vals)
		if rsp == nil || rsp.Ok {
			return rsp
		}
		if r.closed.Load() {
			return nil
		}
	}
}

func (r *Remote) syncOp(op, key string, count int64, vals []any) *wire.Response {
	return r.doOp(op, key, 0, count, vals)
}

func (r *Remote) doOp(op, key string, timeout time.Duration, count int64, vals []any) *wire.Response {
	rsp, err := r.call(op, key, timeout, count, vals)
	if err != nil {
		mlog.Errorf("linda remote %s op %s key %s: %v", r.tag, op, key, err)
		return nil
	}
	if rsp != nil && rsp.Err != "" {
		mlog.Warnf("linda remote %s op %s key %s: server says %s", r.tag, op, key, rsp.Err)
	}
	return rsp
}

func (r *Remote) call(op, key string, timeout time.Duration, count int64, vals []any) (*wire.Response, error) {
	if r.closed.Load() {
		return nil, errs.Closed
	}
	req := &wire.Request{
		Seq:     r.genSeq.Add(1),
		Op:      op,
		Linda:   r.name,
		Key:     key,
		Timeout: timeoutMs(timeout),
		Count:   count,
		Vals:    vals,
	}
	frame, err := wire.EncodeRequest(req)
	if err != nil {
		return nil, err
	}
	// 先登记再发送, 应答不可能跑在登记前面
	ch := make(chan *wire.Response, 1)
	r.mtx.Lock()
	r.pending[req.Seq] = ch
	r.mtx.Unlock()
	defer func() {
		r.mtx.Lock()
		delete(r.pending, req.Seq)
		r.mtx.Unlock()
	}()

	select {
	case r.sendCh <- frame:
	case <-r.quit:
		return nil, errs.Closed
	}

	guard := time.NewTimer(timeout + replyGrace)
	defer guard.Stop()
	select {
	case rsp := <-ch:
		return rsp, nil
	case <-guard.C:
		return nil, errs.Unknown.Printf("reply timeout op=%s seq=%d", op, req.Seq)
	case <-r.quit:
		return nil, errs.Closed
	}
}

func (r *Remote) sendLoop() {
	for {
		select {
		case <-r.quit:
			return
		case frame, ok := <-r.sendCh:
			if !ok {
				return
			}
			if _, err := r.TCPConn.Write(frame); err != nil {
				mlog.Errorf("linda remote %s write: %v", r.tag, err)
				r.shutdown(err)
				return
			}
		}
	}
}

func (r *Remote) readLoop() {
	for {
		payload, err := wire.ReadFrame(r.TCPConn)
		if err != nil {
			r.shutdown(err)
			return
		}
		rsp, err := wire.DecodeResponse(payload)
		if err != nil {
			mlog.Errorf("linda remote %s decode: %v", r.tag, err)
			continue
		}
		r.mtx.Lock()
		ch, ok := r.pending[rsp.Seq]
		if ok {
			delete(r.pending, rsp.Seq)
		}
		r.mtx.Unlock()
		if ok {
			ch <- rsp
		}
	}
}

func (r *Remote) shutdown(reason error) {
	r.closeOnce.Do(func() {
		r.closed.Store(true)
		close(r.quit)
		r.TCPConn.Close()
		if reason != nil {
			mlog.Warnf("linda remote %s down: %v", r.tag, reason)
		} else {
			mlog.Debugf("linda remote %s closed", r.tag)
		}
	})
}

func timeoutMs(d time.Duration) int64 {
	if d < 0 {
		return -1
	}
	ms := d.Milliseconds()
	if d > 0 && ms == 0 {
		ms = 1 // 亚毫秒超时向上取整, 零值另有只试一次的语义
	}
	return ms
}
