package etcd

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Sergeij2000/lanes/mlog"
	"github.com/rs/xid"
	clientv3 "go.etcd.io/etcd/client/v3"
)

func TestEtcdDiscovery(t *testing.T) {
	mlog.UseStdLogger(mlog.DebugLevel)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	conf := &Opt{
		Config: clientv3.Config{
			Endpoints:            []string{"127.0.0.1:2379"},
			DialTimeout:          2 * time.Second,
			DialKeepAliveTime:    5 * time.Second,
			DialKeepAliveTimeout: 3 * time.Second,
		},
	}
	group := "lanes-test-" + xid.New().String()
	d, err := NewEtcdDiscovery(ctx, group, conf)
	if err != nil {
		fmt.Println("etcd not reachable:", err)
		return
	}
	defer d.Stop()
	d.Start()

	node, err := d.Register("main", "127.0.0.1:7100")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(node, "main:") {
		t.Fatalf("node name: %s", node)
	}

	// watch事件进cache有延迟
	var addr string
	for i := 0; i < 50; i++ {
		if addr, err = d.Lookup("main"); err == nil {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if addr != "127.0.0.1:7100" {
		t.Fatalf("lookup: %q %v", addr, err)
	}
	if got, err := d.Lookup(node); err != nil || got != addr {
		t.Fatalf("lookup by id: %q %v", got, err)
	}
	all, err := d.LookupAll("main")
	if err != nil || len(all) != 1 {
		t.Fatalf("lookup all: %v %v", all, err)
	}
}
