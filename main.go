// @title FlowBook 后端 API
// @version 1.0
// @description 电子书翻书器与多活动作业播放器的后端服务。

// @contact.name API支持

// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"flag"
	"flowbook_backend/internal/app"
	"flowbook_backend/internal/config"
	"flowbook_backend/pkg/configwatcher"
	"flowbook_backend/pkg/logger"
	"log"
)

func main() {
	configPath := flag.String("config", "configs", "配置文件目录")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	// 配置热更新：变更后通知注册方
	go configwatcher.WatchConfig(*configPath, func(newCfg *config.Config) {
		application.Config = newCfg
	})

	application.Run()
}
