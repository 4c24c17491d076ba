package discovery

// Discovery 节点注册与寻址, lindad 靠它把自己广播出去
type Discovery interface {
	Start() <-chan error

	Stop()

	// Register 发布一个服务节点, 返回带唯一后缀的节点名
	Register(service string, addr string) (string, error)

	// Lookup 任选一个可用节点, 带 "name:id" 形式可指定节点
	Lookup(service string) (addr string, err error)

	LookupAll(service string) (addrs map[string]string, err error)
}
