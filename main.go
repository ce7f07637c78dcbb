package main

import (
	"flag"
	"log"

	"peekify_backend/internal/app"
	"peekify_backend/internal/config"
	"peekify_backend/pkg/configwatcher"
)

// @title Peekify API
// @version 1.0
// @description 音乐日记社交服务端：Spotify 授权、每日单曲动态、评论表态和好友关系
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	migrate := flag.Bool("migrate", false, "启动时执行数据库迁移")
	migrateOnly := flag.Bool("migrate-only", false, "只执行数据库迁移后退出")
	flag.Parse()

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.ForceMigrate = *migrate
	cfg.MigrateOnly = *migrateOnly

	application := app.NewApp(cfg)

	// 配置文件变更时热更新
	go configwatcher.WatchConfig("configs/config.yaml", application.ApplyConfig)

	application.Run()
}
