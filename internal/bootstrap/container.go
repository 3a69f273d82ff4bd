package bootstrap

import (
	"context"
	"log"

	"ai-chat-be/internal/config"
	"ai-chat-be/internal/controller"
	"ai-chat-be/internal/handler"
	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/internal/pkg/mailer"
	"ai-chat-be/internal/repository/unitofwork"
	"ai-chat-be/internal/service"
	"ai-chat-be/internal/websocket"
	"ai-chat-be/pkg/llm/factory"

	pktNats "ai-chat-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	appendTopic = "chat.message_appended"
	updateTopic = "chat.updated"
)

type Container struct {
	// Controllers
	AuthController   controller.IAuthController
	OAuthController  controller.IOAuthController
	ChatController   controller.IChatController
	AiController     controller.IAiController
	UploadController controller.IUploadController

	// Background Services (Exposed for main.go to run)
	RealtimeService service.IRealtimeService

	// WebSockets
	SocketHandler *handler.SocketHandler
	WebSocketHub  *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.Email,
		cfg.App.ClientURL,
	)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// LLM Provider
	llmProvider, err := factory.NewLLMProvider(factory.Config{
		Provider:    cfg.Ai.Provider,
		Model:       cfg.Ai.Model,
		BaseURL:     cfg.Ai.BaseURL,
		APIKey:      cfg.Ai.APIKey,
		OllamaURL:   cfg.Ai.OllamaURL,
		Temperature: cfg.Ai.Temperature,
	})
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.Provider, cfg.Ai.Model)

	// 2.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		natsPub = nil
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		natsSub = nil
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
		rdb = nil
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/realtime.log")
	wsHub := websocket.NewHub(rdb, wsLogger)

	// 3. Services
	publisherService := service.NewPublisherService(pubSub, appendTopic)
	updatePublisher := service.NewPublisherService(pubSub, updateTopic)

	userService := service.NewUserService(uowFactory)
	authService := service.NewAuthService(uowFactory, emailService, natsPub)
	oauthService := service.NewOAuthService(uowFactory)

	chatService := service.NewChatService(uowFactory, publisherService, updatePublisher, natsPub, sysLogger)
	aiService := service.NewAiService(uowFactory, chatService, llmProvider, sysLogger)
	uploadService := service.NewUploadService(cfg.Upload.Dir)

	// Socket-originated frames reuse the chat service's persistence path.
	wsHub.SetInboundHandler(chatService)
	go wsHub.Run()

	realtimeService := service.NewRealtimeService(pubSub, appendTopic, updateTopic, wsHub, wsLogger)

	// Offline notification worker
	if natsSub != nil {
		notificationService := service.NewNotificationService(natsSub, uowFactory, emailService, wsHub, sysLogger)
		if err := notificationService.Start(); err != nil {
			log.Printf("[WARN] Failed to start notification worker: %v", err)
		}
	}

	socketHandler := handler.NewSocketHandler(wsHub, userService, wsLogger)

	return &Container{
		AuthController:   controller.NewAuthController(authService, userService),
		OAuthController:  controller.NewOAuthController(oauthService, cfg.App.ClientURL),
		ChatController:   controller.NewChatController(chatService),
		AiController:     controller.NewAiController(aiService),
		UploadController: controller.NewUploadController(uploadService),

		RealtimeService: realtimeService,

		SocketHandler: socketHandler,
		WebSocketHub:  wsHub,
	}
}
