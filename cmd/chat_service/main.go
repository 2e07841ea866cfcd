package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"trip_chat_service/internal/chat/app"
	"trip_chat_service/internal/chat/repository"
	"trip_chat_service/internal/chat/router"
	"trip_chat_service/pkg/config"
	"trip_chat_service/pkg/database"
	"trip_chat_service/pkg/logger"
	testtool "trip_chat_service/pkg/test_tool"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.TripChatService, config.EnvConfig.TripChatServiceLogPath)
	cfg := config.LoadConfig[config.TripChat](config.EnvConfig.TripChatService, config.EnvConfig.TripChatServiceYAMLPath)
	testtool.StartPprof()

	// Mongo holds the conversation tree and the message log
	ctx := context.Background()
	uri := fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.Mongo.User, cfg.Mongo.Password, cfg.Mongo.Host, cfg.Mongo.Port)
	mongo, err := database.NewMongoDB(ctx,
		database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.Mongo.RetryCount,
			RetryInterval: time.Duration(cfg.Mongo.RetryInterval),
		},
		cfg.Mongo.Database)
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to mongoDB database after retries",
			zap.String("address", fmt.Sprintf("[%s]", uri)),
			zap.Error(err),
		)
	}
	defer mongo.Close(ctx)

	// Redis holds presence records and carries the live fan-out
	masterName, sentinel := config.GetRedisSetting()
	redisClient, err := database.NewRedisClient(masterName, sentinel, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
	}

	pubsub := repository.NewRedisPubSub(redisClient)
	convRepo := repository.NewMongoConversationRepository(mongo.Database)
	msgRepo := repository.NewMongoMessageRepository(mongo.Database)
	presenceRepo := repository.NewRedisPresenceRepository(redisClient, pubsub)

	profileClient := repository.NewHTTPProfileClient(cfg.Profile.BaseURL, cfg.Profile.Timeout)
	notifyClient := repository.NewHTTPNotificationClient(cfg.Notification.BaseURL, cfg.Notification.Timeout)

	notificationUC := app.NewNotificationUseCase(presenceRepo, profileClient, notifyClient)
	messageUC := app.NewSendMessageUseCase(convRepo, msgRepo, pubsub, notificationUC)
	presenceUC := app.NewPresenceUseCase(presenceRepo, pubsub)
	readStateUC := app.NewReadStateUseCase(convRepo, msgRepo, pubsub, cfg.Chat.MarkReadRetry)
	inboxUC := app.NewInboxUseCase(convRepo, msgRepo, profileClient, pubsub, cfg.Chat.ProfileCacheTTL)

	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.TripChatServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	router.RegisterRoutes(r, app.NewChatWebsocketHandler(messageUC, presenceUC, readStateUC, inboxUC, cfg.Chat.PingInterval))

	port := ":" + cfg.Port
	log.Printf("Trip Chat Service listening on %s", port)
	if err := r.Listen(port); err != nil {
		log.Fatalf("Failed to start Fiber: %v", err)
	}
}
