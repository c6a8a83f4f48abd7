package router

import (
	"github.com/gin-gonic/gin"

	"github.com/forgeflowhq/forgeflow/internal/http/handler/webhook"
)

func SetupRoutes(router *gin.Engine, hook *webhook.GitHubWebhookHandler) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	router.POST("/postreceive", hook.HandleEvent)
}
