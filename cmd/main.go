package main

import (
	"context"
	"log"
	"os"

	"github.com/nanuri-team/nanuri-backend/config"
	"github.com/nanuri-team/nanuri-backend/controllers"
	"github.com/nanuri-team/nanuri-backend/routes"
	"github.com/nanuri-team/nanuri-backend/services"

	"github.com/go-redis/redis/v8"
)

func main() {
	config.InitDB()

	log.Println("Initializing DynamoDB client...")
	messageLog := services.NewMessageLogService(services.NewDynamoDBClient())
	if err := messageLog.EnsureTable(context.Background()); err != nil {
		log.Fatalf("Failed to provision group_message table: %v", err)
	}

	snsService := services.NewSNSService(services.NewSNSClient(), os.Getenv("SNS_PLATFORM_APPLICATION_ARN"))

	subscriptionService := services.NewSubscriptionService(config.DB, snsService)
	deviceService := services.NewDeviceService(config.DB, snsService, subscriptionService)
	authService := services.NewAuthService(config.DB)

	// Single-node deployments fan out in process; with REDIS_URL set the
	// relay rides redis pub/sub so every node sees every broadcast.
	hub := services.NewHub()
	var broker services.RoomBroker = hub
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		log.Println("Using redis-backed chat relay:", redisURL)
		broker = services.NewRedisBroker(hub, redis.NewClient(&redis.Options{Addr: redisURL}))
	}

	chatController := controllers.NewChatController(broker, messageLog, authService)
	deviceController := controllers.NewDeviceController(deviceService)
	subscriptionController := controllers.NewSubscriptionController(subscriptionService, deviceService)
	messageController := controllers.NewMessageController(snsService)

	r := routes.SetupRouter(authService, chatController, deviceController, subscriptionController, messageController)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Starting server on port %s...", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Server exited: %v", err)
	}
}
