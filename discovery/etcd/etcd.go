package etcd

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	sd "github.com/Sergeij2000/lanes/discovery"
	"github.com/Sergeij2000/lanes/g"
	"github.com/Sergeij2000/lanes/mlog"
	"github.com/google/uuid"
	clientv3 "go.etcd.io/etcd/client/v3"
)

const (
	// 租约有效期, 期间收不到keepAlive相关的key会被删除
	defaultTimeToLiveSeconds = 5

	// etcd put事件
	eventType_Put = 0

	// etcd delete事件
	eventType_Delete = 1
)

type Opt struct {
	clientv3.Config
	LeaseTTL int64 `json:"leaseTTL"`
}

// NewEtcdDiscovery 创建一个etcd实例, group 区分集群
func NewEtcdDiscovery(ctx context.Context, group string, opt *Opt) (sd.Discovery, error) {
	// 注意，设置了DialTimeout参数，clientv3.New会是阻塞call(如果需要非阻塞call，则不能设置DailTimeout参数)
	// 详见 https://github.com/etcd-io/etcd/issues/9829#issuecomment-438434795
	cli, err := clientv3.New(opt.Config)
	if err != nil {
		return nil, err
	}

	if opt.LeaseTTL == 0 {
		opt.LeaseTTL = defaultTimeToLiveSeconds
	}

	// 监视该前缀下的key, 变动走rch管道通知
	prefix := fmt.Sprintf("%s:linda:", group)
	rch := cli.Watch(ctx, prefix, clientv3.WithPrefix())
	if rch == nil {
		return nil, fmt.Errorf("watch etcd %v error", opt.Endpoints)
	}

	return &etcdImp{
		cli:      cli,
		prefix:   prefix,
		all:      make(nodeContainer),
		regNodes: make(map[string]string),
		rch:      rch,
		ctx:      ctx,
		leaseTTL: opt.LeaseTTL,
	}, nil
}

// nodeSet 一类服务的全部节点
type nodeSet struct {
	id2addr map[string]string // UUID -> 地址
	ids     []string          // id2addr的全部key, 用于随机选节点
}

type nodeContainer map[string]*nodeSet

type etcdImp struct {
	cli *clientv3.Client

	// etcd里的key前缀, 格式: group:linda:
	prefix string
	// 集群所有节点cache
	all nodeContainer
	// 自己注册的节点, key是etcd完整key
	regNodes map[string]string

	mx  sync.RWMutex
	ctx context.Context

	rch clientv3.WatchChan

	leaseTTL int64
}

func (e *etcdImp) Start() <-chan error {
	errChan := make(chan error, 10)
	// 把watch之前已经存在的节点缓存下来
	g.Go("etcd cache", e.cacheExistedNodes)
	g.Go("etcd watch", func() {
		for {
			select {
			case <-e.ctx.Done():
				errChan <- nil
				return
			case watchRsp, ok := <-e.rch:
				if !ok {
					mlog.Infof("etcd watch channel closed")
					errChan <- nil
					return
				}
				if err := watchRsp.Err(); err != nil {
					mlog.Warnf("etcd watch response error: %v", err)
					errChan <- err
					return
				}
				for _, evt := range watchRsp.Events {
					if evt != nil {
						e.onWatchEvent(evt)
					}
				}
			}
		}
	})
	return errChan
}

func (e *etcdImp) Stop() {
	if e.cli == nil {
		return
	}
	e.mx.RLock()
	for k := range e.regNodes {
		e.cli.Delete(e.ctx, k) // 停止时不关注error
	}
	e.mx.RUnlock()
	if err := e.cli.Close(); err != nil {
		mlog.Warnf("etcd stop, Close error %v", err)
	}
}

// Register 发布节点到etcd, UUID后缀保证唯一
func (e *etcdImp) Register(service string, addr string) (string, error) {
	service = strings.ToLower(service)
	nodeName := fmt.Sprintf("%s:%s", service, uuid.New().String())
	key := fmt.Sprintf("%s%s", e.prefix, nodeName)
	if err := e.putNodeKey(key, addr); err != nil {
		return nodeName, err
	}
	return nodeName, nil
}

func (e *etcdImp) putNodeKey(key string, addr string) error {
	resp, err := e.cli.Grant(e.ctx, e.leaseTTL)
	if err != nil {
		return err
	}
	mlog.Infof("etcd Grant lease ID: %X, TTL %d", resp.ID, e.leaseTTL)
	_, err = e.cli.Put(e.ctx, key, addr, clientv3.WithLease(resp.ID))
	if err != nil {
		return err
	}
	mlog.Infof("etcd PUT %s %s", key, addr)
	e.mx.Lock()
	e.regNodes[key] = addr
	e.mx.Unlock()
	ch, err := e.cli.KeepAlive(e.ctx, resp.ID)
	if err != nil {
		return err
	}
	g.Go("etcd keepalive "+key, func() {
		for {
			_, ok := <-ch
			if !ok {
				mlog.Infof("etcd key: %s KeepAlive channel closed", key)
				return
			}
		}
	})
	return nil
}

func (e *etcdImp) Lookup(service string) (string, error) {
	service = strings.ToLower(service)
	var nodeUUID string
	if index := strings.Index(service, ":"); index != -1 {
		service, nodeUUID = service[:index], service[index+1:]
	}

	e.mx.RLock()
	defer e.mx.RUnlock()
	nodes, ok := e.all[service]
	if !ok || len(nodes.ids) == 0 {
		return "", fmt.Errorf("not found service (%s)", service)
	}
	// 可用节点里随机挑一个
	if len(nodeUUID) == 0 {
		index := rand.Intn(len(nodes.ids))
		nodeUUID = nodes.ids[index]
	}
	addr, ok := nodes.id2addr[nodeUUID]
	if !ok {
		mlog.Debugf("Lookup %s, id2addr %#v", service, nodes.id2addr)
		return "", fmt.Errorf("%s node not found", service)
	}
	return addr, nil
}

func (e *etcdImp) LookupAll(service string) (map[string]string, error) {
	service = strings.ToLower(service)
	if index := strings.Index(service, ":"); index != -1 {
		service = service[:index]
	}

	e.mx.RLock()
	defer e.mx.RUnlock()
	nodes, ok := e.all[service]
	if !ok {
		return nil, fmt.Errorf("not found service (%s)", service)
	}
	addrs := make(map[string]string)
	for id, addr := range nodes.id2addr {
		addrs[id] = addr
	}
	return addrs, nil
}

func (e *etcdImp) onWatchEvent(evt *clientv3.Event) {
	key := string(evt.Kv.Key)
	value := string(evt.Kv.Value)
	mlog.Infof("etcd onWatchEvent type %s, key %s, value %s", evt.Type, key, value)

	name, id, err := e.parseKey(key)
	if err != nil {
		mlog.Errorf("etcd onWatchEvent parseKey fail, key:%s, err:%v", key, err)
		return
	}

	var reregAddr string
	var rereg bool
	e.mx.Lock()
	if int32(evt.Type) == eventType_Delete { // 为了不引入mvccpb
		if e.delNode(name, id) {
			mlog.Infof("etcd onWatchEvent delete (%s,%s)", name, id)
		}
		// 删除的是本节点就要重新注册(可能是keepalive超时被清了)
		reregAddr, rereg = e.regNodes[key]
	} else if int32(evt.Type) == eventType_Put {
		if e.addNode(name, id, value) {
			mlog.Infof("etcd onWatchEvent addNode, %s -> %s", key, value)
		}
	}
	e.mx.Unlock()

	if rereg {
		mlog.Infof("etcd onWatchEvent register again, key:%s, addr:%s", key, reregAddr)
		if err := e.putNodeKey(key, reregAddr); err != nil {
			mlog.Errorf("etcd onWatchEvent putNodeKey err:%v", err)
		}
	}
}

// 解析key(grp:linda:main:b748593c-...)为 [main, UUID]
func (e *etcdImp) parseKey(key string) (name, id string, err error) {
	if !strings.HasPrefix(key, e.prefix) {
		err = errors.New("key not match prefix")
		return
	}
	keys := strings.Split(key[len(e.prefix):], ":")
	if len(keys) != 2 {
		err = errors.New("key not match format")
		return
	}
	name, id = keys[0], keys[1]
	return
}

func (e *etcdImp) addNode(name string, id string, addr string) bool {
	nodes, ok := e.all[name]
	if !ok {
		nodes = &nodeSet{
			id2addr: make(map[string]string),
		}
		e.all[name] = nodes
	}
	if _, ok := nodes.id2addr[id]; !ok {
		nodes.id2addr[id] = addr
		nodes.ids = append(nodes.ids, id)
		return true
	}
	return false
}

func (e *etcdImp) delNode(name string, id string) bool {
	nodes, ok := e.all[name]
	if !ok {
		return false
	}
	delete(nodes.id2addr, id)
	for i, v := range nodes.ids {
		if v == id {
			length := len(nodes.ids)
			nodes.ids[i] = nodes.ids[length-1]
			nodes.ids = nodes.ids[:length-1]
			return true
		}
	}
	return false
}

func (e *etcdImp) cacheExistedNodes() {
	rsp, err := e.cli.Get(e.ctx, e.prefix, clientv3.WithPrefix())
	if err != nil {
		mlog.Warnf("cacheExistedNodes Get error %v", err)
		return
	}

	e.mx.Lock()
	defer e.mx.Unlock()

	var key, value string
	for _, v := range rsp.Kvs {
		if v == nil {
			continue
		}
		key = string(v.Key)
		value = string(v.Value)
		if len(key) < len(e.prefix) {
			continue
		}
		if name, id, err := e.parseKey(key); err == nil {
			if e.addNode(name, id, value) {
				mlog.Infof("cacheExistedNodes addNode, %s -> %s", key, value)
			}
		}
	}
}
