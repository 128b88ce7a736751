package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dfialho05/TAES2025-G3-DDV-sub002/common/config"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/common/log"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/core/container"
)

// Run 1.装配容器并启动 Worker 与看门狗。 2.优雅启停。
func Run(ctx context.Context) error {
	gameContainer := container.NewGameContainer()
	if gameContainer == nil {
		log.Fatal("game 容器初始化失败")
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)

	go func() {
		log.Info("启动 game worker、nats 监听、看门狗...")
		err := gameContainer.GameWorker.Start(runCtx, config.GameNodeConfig.NatsConf.URL)
		if err != nil {
			log.Fatal("game worker 启动失败: %v", err)
		}
		go gameContainer.Watchdog.Run(runCtx)
	}()

	stop := func() {
		log.Info("正在关闭 game 服务")
		cancel()
		time.Sleep(3 * time.Second)
		if err := gameContainer.Close(); err != nil {
			log.Error("容器关闭失败: %v", err)
		}
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGHUP)
	for {
		select {
		case <-ctx.Done():
			stop()
			return nil
		case s := <-c:
			switch s {
			case syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT:
				stop()
				log.Info("中断信号，服务停止")
				return nil
			case syscall.SIGHUP:
				stop()
				log.Info("挂起信号，服务停止")
				return nil
			default:
				return nil
			}
		}
	}
}
