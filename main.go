package main

import (
	"log"

	"chat-server/config"
	"chat-server/models"
	"chat-server/routes"
	"chat-server/services"
	"chat-server/store"
)

func main() {
	// 初始化配置与数据库
	config.Init()
	config.InitDB()
	// 自动迁移
	models.Migrate()

	// 装配并启动 Hub
	hub := services.InitHub(
		store.NewConversationStore(config.DB),
		store.NewUserStore(config.DB),
	)
	go hub.Run()

	// 注册路由
	r := routes.RegisterRoutes()

	// 启动服务
	if err := r.Run(":" + config.Get("PORT", "8082")); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
