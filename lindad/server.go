package lindad

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/Sergeij2000/lanes/linda"
	"github.com/Sergeij2000/lanes/lock"
	"github.com/Sergeij2000/lanes/mlog"
	"github.com/Sergeij2000/lanes/wire"
	"github.com/panjf2000/gnet/v2"
)

type ServerOptions struct {
	gnet.Options
	Addr       string        //"tcp://127.0.0.1:7100"
	MaxTimeout time.Duration // 单次阻塞等待的服务端上限, 0 取默认值
}

const defaultMaxTimeout = 60 * time.Second

// Server 槽位空间的网络端, 客户端是 linda.Remote。
// 名字空间按需创建, 不主动销毁。
type Server struct {
	gnet.BuiltinEventEngine
	gnet.Engine // use for stop
	opt         *ServerOptions
	mtx         sync.Locker
	lindas      map[string]*linda.Mem
}

func NewServer(opt *ServerOptions) *Server {
	if opt.MaxTimeout <= 0 {
		opt.MaxTimeout = defaultMaxTimeout
	}
	return &Server{
		opt:    opt,
		mtx:    lock.NewSpinLock(),
		lindas: make(map[string]*linda.Mem),
	}
}

func (s *Server) Run() error {
	return gnet.Run(s, s.opt.Addr, gnet.WithOptions(s.opt.Options))
}

func (s *Server) Stop(ctx context.Context) error {
	return s.Engine.Stop(ctx)
}

func (s *Server) linda(name string) *linda.Mem {
	s.mtx.Lock()
	l := s.lindas[name]
	if l == nil {
		l = linda.NewMem(name)
		s.lindas[name] = l
		mlog.Infof("lindad create linda %q", name)
	}
	s.mtx.Unlock()
	return l
}

// 在gnet.Run协程里被调用
func (s *Server) OnBoot(eng gnet.Engine) (action gnet.Action) {
	s.Engine = eng
	mlog.Infof("lindad listening on %s", s.opt.Addr)
	return
}

// 在gnet.Run协程里被调用, 关掉所有槽位空间让挂着的协程退出
func (s *Server) OnShutdown(eng gnet.Engine) {
	s.mtx.Lock()
	for _, l := range s.lindas {
		l.Close()
	}
	s.mtx.Unlock()
	mlog.Infof("lindad shutdown")
}

func (s *Server) OnOpen(c gnet.Conn) (out []byte, action gnet.Action) {
	mlog.Debugf("%s connection opened", c.RemoteAddr().String())
	return
}

func (s *Server) OnClose(c gnet.Conn, err error) (action gnet.Action) {
	if err != nil {
		mlog.Debugf("%s connection closed: %v", c.RemoteAddr().String(), err)
	} else {
		mlog.Debugf("%s connection closed", c.RemoteAddr().String())
	}
	return
}

func (s *Server) OnTraffic(c gnet.Conn) (r gnet.Action) {
	for {
		lenBuf, err := c.Peek(wire.MsgLenSize)
		if err != nil {
			return gnet.None
		}
		dataLen := int(binary.LittleEndian.Uint32(lenBuf))
		if dataLen > wire.MaxFrameLen {
			mlog.Errorf("%s oversized frame %d", c.RemoteAddr().String(), dataLen)
			return gnet.Close
		}
		totalLen := wire.MsgLenSize + dataLen
		if c.InboundBuffered() < totalLen {
			return gnet.None
		}
		c.Discard(wire.MsgLenSize)
		packetBuf, err := c.Next(dataLen)
		if err != nil {
			return gnet.None
		}
		req, err := wire.DecodeRequest(packetBuf)
		if err != nil {
			mlog.Errorf("%s bad frame: %v", c.RemoteAddr().String(), err)
			return gnet.Close
		}
		s.dispatch(c, req)
	}
}
