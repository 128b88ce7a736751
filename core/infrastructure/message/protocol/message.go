package protocol

import "encoding/json"

type PacketType int

const (
	Request  PacketType = iota + 1 // 请求，期待 Response
	Response                       // 请求的应答
	Push                           // 服务端主动推送
)

// Message 节点间消息的内层协议
// Route 是客户端路由，Data 是业务负载，保持原始字节延迟解析
type Message struct {
	Type  PacketType      `json:"type"`
	Route string          `json:"route"`
	Data  json.RawMessage `json:"data"`
}
