package node

import (
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dfialho05/TAES2025-G3-DDV-sub002/common/log"
)

type Client interface {
	Run(string) error
	SendMessage(string, []byte) error
	Close() error
}

// NatsClient 订阅本节点 topic，收到的原始消息写入 readChan
type NatsClient struct {
	topic    string
	conn     *nats.Conn
	readChan chan []byte
}

func NewNatsClient(topic string, readChan chan []byte) *NatsClient {
	return &NatsClient{
		topic:    topic,
		readChan: readChan,
	}
}

func (nc *NatsClient) IsConnected() bool {
	return nc.conn != nil && nc.conn.IsConnected()
}

func (nc *NatsClient) Run(url string) error {
	log.Info("nats 服务正在启动, url:%s", url)
	var err error
	nc.conn, err = nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats 连接断开: %v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info("nats 重连成功")
		}),
	)
	if err != nil {
		log.Error("nats 连接错误,err:%v", err)
		return err
	}
	go nc.Subscribe()

	log.Info("nats 服务启动成功, url:%s", url)
	return nil
}

func (nc *NatsClient) Subscribe() {
	_, err := nc.conn.Subscribe(nc.topic, func(message *nats.Msg) {
		nc.readChan <- message.Data
	})
	if err != nil {
		log.Error("nats sub err:%v", err)
	}
}

func (nc *NatsClient) Close() error {
	if nc.conn == nil {
		return nil
	}

	nc.conn.Close()
	log.Info("NATS 连接已关闭")

	return nil
}

func (nc *NatsClient) SendMessage(subject string, data []byte) error {
	if !nc.IsConnected() {
		return ErrNotConnected
	}

	return nc.conn.Publish(subject, data)
}
