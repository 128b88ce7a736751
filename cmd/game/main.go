package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dfialho05/TAES2025-G3-DDV-sub002/common/config"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/common/log"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/common/metrics"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/core/app"
)

// 加载配置 -> 启动监控 -> 启动 game 服务

var configFile string

var rootCmd = &cobra.Command{
	Use:   "game",
	Short: "game 对局服务",
	Long:  `game 对局服务`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := config.Load(configFile); err != nil {
			log.Fatal("文件配置发生错误：%v", err)
		}
		log.InitLog(config.GameNodeConfig.ID, config.GameNodeConfig.LogConf.Level)
		log.Info("配置文件: %+v", config.GameNodeConfig)
		go func() {
			log.Info("启动监控..., URL: http://localhost:%d/debug/statsviz/", config.GameNodeConfig.MetricPort)
			err := metrics.Serve(fmt.Sprintf("0.0.0.0:%d", config.GameNodeConfig.MetricPort))
			if err != nil {
				panic(err)
			}
		}()
		err := app.Run(context.Background())
		if err != nil {
			log.Error("发生异常: %v", err)
			os.Exit(-1)
		}
	},
}

func init() {
	rootCmd.Flags().StringVar(&configFile, "configFile", "", "resource file")
	rootCmd.MarkFlagRequired("configFile")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error("error happen: %#v", err)
		os.Exit(1)
	}
}
