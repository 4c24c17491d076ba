package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Sergeij2000/lanes/app"
	"github.com/Sergeij2000/lanes/config"
	"github.com/Sergeij2000/lanes/discovery"
	etcdsd "github.com/Sergeij2000/lanes/discovery/etcd"
	"github.com/Sergeij2000/lanes/g"
	"github.com/Sergeij2000/lanes/lindad"
	"github.com/Sergeij2000/lanes/mlog"
	"github.com/Sergeij2000/lanes/util"
	clientv3 "go.etcd.io/etcd/client/v3"
)

const serviceName = "lindad"

var configFile = flag.String("config", "lindad.json", "配置文件路径")

func main() {
	flag.Parse()
	if err := config.LoadConfig(*configFile, nil); err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	conf := config.Config

	logCtx, logCancel := context.WithCancel(context.Background())
	logWg := &sync.WaitGroup{}
	if conf.LogPath != "" {
		if err := mlog.UseFileLogger(logCtx, logWg, conf.LogPath, conf.LogName, mlog.Level(conf.LogLevel), conf.LogStdOut); err != nil {
			fmt.Fprintln(os.Stderr, "init logger:", err)
			os.Exit(1)
		}
	} else {
		mlog.UseStdLogger(mlog.Level(conf.LogLevel))
	}
	mlog.Infof("lindad boot, config:\n%s", conf.JsonFormat())

	util.SetTimeOffset(time.Duration(conf.TimezoneOffset) * time.Second)

	if conf.PprofPort > 0 {
		g.Go("pprof", func() {
			http.ListenAndServe(fmt.Sprintf(":%d", conf.PprofPort), nil)
		})
	}

	mods := []app.Module{newServerModule(conf)}
	if conf.EtcdEndpoints != "" {
		mods = append(mods, newRegistrarModule(conf))
	}
	app.DefaultApp().Run(mods...)

	// 冲掉还在缓冲里的日志
	logCancel()
	logWg.Wait()
}

type serverModule struct {
	conf *config.AppConfig
	srv  *lindad.Server
}

func newServerModule(conf *config.AppConfig) *serverModule {
	return &serverModule{conf: conf}
}

func (m *serverModule) Name() string { return "lindad" }

func (m *serverModule) OnInit() error {
	addr := m.conf.ListenAddr
	if addr == "" {
		addr = "tcp://0.0.0.0:7100"
	}
	m.srv = lindad.NewServer(&lindad.ServerOptions{
		Addr:       addr,
		MaxTimeout: time.Duration(m.conf.MaxTimeoutMs) * time.Millisecond,
	})
	return nil
}

func (m *serverModule) Run() {
	if err := m.srv.Run(); err != nil {
		mlog.Errorf("lindad server: %v", err)
	}
}

func (m *serverModule) Destroy() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := m.srv.Stop(ctx); err != nil {
		mlog.Errorf("lindad stop: %v", err)
	}
}

type registrarModule struct {
	conf   *config.AppConfig
	disc   discovery.Discovery
	cancel context.CancelFunc
}

func newRegistrarModule(conf *config.AppConfig) *registrarModule {
	return &registrarModule{conf: conf}
}

func (m *registrarModule) Name() string { return "registrar" }

func (m *registrarModule) OnInit() error {
	group := m.conf.EtcdGroup
	if group == "" {
		group = "lanes"
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	d, err := etcdsd.NewEtcdDiscovery(ctx, group, &etcdsd.Opt{
		Config: clientv3.Config{
			Endpoints:            strings.Split(m.conf.EtcdEndpoints, ","),
			DialTimeout:          5 * time.Second,
			DialKeepAliveTime:    5 * time.Second,
			DialKeepAliveTimeout: 3 * time.Second,
		},
		LeaseTTL: m.conf.EtcdLeaseTTL,
	})
	if err != nil {
		cancel()
		return err
	}
	m.disc = d
	return nil
}

func (m *registrarModule) Run() {
	errCh := m.disc.Start()
	addr := m.conf.AdvertiseAddr
	if addr == "" {
		addr = strings.TrimPrefix(m.conf.ListenAddr, "tcp://")
	}
	node, err := m.disc.Register(serviceName, addr)
	if err != nil {
		mlog.Errorf("registrar register: %v", err)
	} else {
		mlog.Infof("registered as %s -> %s", node, addr)
	}
	if err := <-errCh; err != nil {
		mlog.Errorf("registrar watch: %v", err)
	}
}

func (m *registrarModule) Destroy() {
	m.cancel()
	m.disc.Stop()
}
