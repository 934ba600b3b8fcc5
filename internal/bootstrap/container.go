package bootstrap

import (
	"context"
	"log"
	"time"

	"notechat-be/internal/config"
	"notechat-be/internal/controller"
	"notechat-be/internal/handler"
	"notechat-be/internal/pkg/logger"
	"notechat-be/internal/repository/implementation"
	"notechat-be/internal/repository/unitofwork"
	"notechat-be/internal/service"
	"notechat-be/internal/websocket"
	"notechat-be/pkg/llm/factory"

	pktNats "notechat-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AuthController controller.IAuthController
	NoteController controller.INoteController
	ChatController controller.IChatController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets & Notification
	NotificationHandler *handler.NotificationHandler
	WebSocketHub        *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// LLM Provider
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Keys.GoogleGemini,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 2.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
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
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/notification.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// Recent-notes cache, refreshed by the activity consumer
	recentCache := gocache.New(10*time.Minute, 30*time.Minute)

	publisherService := service.NewPublisherService(cfg.Keys.NoteTouchedTopic, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Keys.NoteTouchedTopic,
		uowFactory,
		recentCache,
	)

	authService := service.NewAuthService(uowFactory, natsPub)
	noteService := service.NewNoteService(uowFactory, publisherService, natsPub, recentCache)

	chatService := service.NewChatService(
		uowFactory,
		llmProvider,
		sysLogger,
		service.ChatConfig{
			HistoryWindow:   cfg.Ai.HistoryWindow,
			ChunkSize:       cfg.Ai.StreamChunkSize,
			Delay:           time.Duration(cfg.Ai.StreamDelayMs) * time.Millisecond,
			GenerateTimeout: time.Duration(cfg.Ai.GenerateTimeoutSec) * time.Second,
		},
		publisherService,
		natsPub,
	)

	// 3. Notification System
	notifRepo := implementation.NewNotificationRepository(db)
	notifService := service.NewNotificationService(notifRepo, uowFactory, natsSub, wsHub, wsLogger)

	if natsSub != nil {
		go notifService.Start()
	}

	notifHandler := handler.NewNotificationHandler(notifService, wsHub, wsLogger)

	// 4. Controllers
	return &Container{
		NotificationHandler: notifHandler,
		WebSocketHub:        wsHub,
		AuthController:      controller.NewAuthController(authService),
		NoteController:      controller.NewNoteController(noteService),
		ChatController:      controller.NewChatController(chatService),

		ConsumerService: consumerService,
	}
}
