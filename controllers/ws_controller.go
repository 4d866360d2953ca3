package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"chat-server/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSController 升级 WebSocket 连接。身份通过 ?token= 携带，
// 升级成功后交给 Hub 接管生命周期
func WSController(ctx *gin.Context) {
	token := ctx.Query("token")
	userID, err := services.ParseToken(token)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or missing token"})
		return
	}

	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upgrade connection"})
		return
	}

	hub := services.GetHub()
	client := services.NewClient(userID, conn)
	hub.OnConnect(client)

	go client.ReadMessages(hub)
	go client.WriteMessages()
	go client.StartHeartbeat()
}
