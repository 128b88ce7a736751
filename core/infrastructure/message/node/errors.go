package node

import "errors"

var (
	ErrNotConnected  = errors.New("未连接到 nats 服务")
	ErrInvalidRoute  = errors.New("无效的路由")
	ErrWriteChanFull = errors.New("推送队列已满")
)
