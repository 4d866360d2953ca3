package routes

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"chat-server/controllers"
	"chat-server/middlewares"
)

// RegisterRoutes 注册所有路由
func RegisterRoutes() *gin.Engine {

	r := gin.Default()
	// 配置跨域中间件
	corsConfig := cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}

	r.Use(cors.New(corsConfig))
	r.GET("/ws", controllers.WSController)

	protected := r.Group("/api")

	protected.POST("/register", controllers.Register) // 绑定注册接口
	protected.POST("/login", controllers.Login)       // 绑定登录接口

	{
		protected.Use(middlewares.TokenAuthMiddleware())
		protected.GET("/userinfo", controllers.GetUserInfo)
		protected.GET("/conversation", controllers.GetConversations)
		protected.GET("/conversation/:conversation_id", controllers.GetMessagesByConversationID)
		protected.POST("/group", controllers.CreateGroupHandler)
	}

	return r
}
