package routes

import (
	"net/http"

	"github.com/nanuri-team/nanuri-backend/controllers"
	"github.com/nanuri-team/nanuri-backend/middlewares"
	"github.com/nanuri-team/nanuri-backend/services"

	"github.com/gin-gonic/gin"
)

func SetupRouter(
	auth *services.AuthService,
	chat *controllers.ChatController,
	devices *controllers.DeviceController,
	subscriptions *controllers.SubscriptionController,
	messages *controllers.MessageController,
) *gin.Engine {
	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	// Group chat websocket; authenticates via the token query parameter.
	r.GET("/ws/chat/:roomName", chat.ChatWS)

	api := r.Group("/api/v1")
	api.Use(middlewares.AuthMiddleware(auth))
	{
		api.POST("/devices", devices.Create)
		api.GET("/devices/:uuid", devices.Retrieve)
		api.PUT("/devices/:uuid", devices.Update)
		api.PATCH("/devices/:uuid", devices.Update)
		api.DELETE("/devices/:uuid", devices.Delete)

		api.GET("/subscriptions", subscriptions.List)
		api.POST("/subscriptions", subscriptions.Create)
		api.GET("/subscriptions/:uuid", subscriptions.Retrieve)
		api.PUT("/subscriptions/:uuid", subscriptions.Update)
		api.PATCH("/subscriptions/:uuid", subscriptions.Update)
		api.DELETE("/subscriptions/:uuid", subscriptions.Delete)

		api.POST("/messages", messages.Publish)
		api.GET("/messages/subscriptions", messages.ListBrokerSubscriptions)
	}

	return r
}
