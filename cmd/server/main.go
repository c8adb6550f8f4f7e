package main

import (
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"

	"github.com/dayeonkimm/vita-gamemate/internal/cache"
	"github.com/dayeonkimm/vita-gamemate/internal/handlers"
	"github.com/dayeonkimm/vita-gamemate/internal/handlers/ws"
	"github.com/dayeonkimm/vita-gamemate/internal/middleware"
	"github.com/dayeonkimm/vita-gamemate/internal/repository"
	"github.com/dayeonkimm/vita-gamemate/internal/scheduler"
	"github.com/dayeonkimm/vita-gamemate/internal/service"
	"github.com/dayeonkimm/vita-gamemate/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	if os.Getenv("JWT_SECRET") == "" {
		log.Fatal("JWT_SECRET is required")
	}

	app := fiber.New(fiber.Config{
		AppName:   "Vita Gamemate Backend",
		BodyLimit: 8 * 1024 * 1024, // profile image uploads
	})

	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     os.Getenv("ALLOWED_ORIGINS"),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
	}))

	db, err := repository.InitDB()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisDB := 2
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if parsed, err := strconv.Atoi(dbStr); err == nil {
			redisDB = parsed
		}
	}
	redisCache := cache.NewRedisCache(redisAddr, os.Getenv("REDIS_PASSWORD"), redisDB)
	if err := redisCache.Ping(); err != nil {
		// The message buffer cannot run without it; unread and list caches
		// could, but a half-dead buffer store is not worth limping on.
		log.Fatal("Failed to connect to Redis:", err)
	}
	log.Println("Redis connected successfully")

	messageBuffer := cache.NewMessageBuffer(redisCache)
	presence := cache.NewPresenceTracker(redisCache)
	unreadCache := cache.NewUnreadCache(redisCache)
	listCache := cache.NewChatListCache(redisCache)

	userRepo := repository.NewUserRepository(db)
	roomRepo := repository.NewChatRoomRepository(db)
	membershipRepo := repository.NewChatRoomUserRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	authService := service.NewAuthService(userRepo)
	userService := service.NewUserService(userRepo)
	unreadService := service.NewUnreadService(membershipRepo, unreadCache)
	chatService := service.NewChatService(roomRepo, membershipRepo, messageRepo, userRepo, unreadService, listCache)
	flushService := service.NewFlushService(messageBuffer, messageRepo, roomRepo)

	var profileStore *storage.S3Storage
	if cfg, err := storage.LoadS3ConfigFromEnv(); err != nil {
		log.Printf("WARNING: S3 storage not configured: %v", err)
	} else if st, err := storage.NewS3Storage(cfg); err != nil {
		log.Printf("WARNING: Failed to initialize S3 storage: %v", err)
	} else {
		profileStore = st
	}

	hub := ws.NewHub()
	wsHandler := handlers.NewWebSocketHandler(hub, authService, chatService, unreadService, presence, messageBuffer)
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService, profileStore)
	chatHandler := handlers.NewChatHandler(chatService, userService)

	api := app.Group("/api")
	auth := api.Group("/auth", limiter.New(limiter.Config{
		Max:        20,
		Expiration: time.Minute,
	}))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)

	protected := api.Group("/", middleware.AuthRequired())
	protected.Get("/users/me", userHandler.GetCurrentUser)
	protected.Post("/users/me/profile-image", userHandler.UploadProfileImage)
	protected.Post("/chats", chatHandler.CreateRoom)
	protected.Get("/chats", chatHandler.ListRooms)
	protected.Get("/chats/:room_id/messages", chatHandler.ListMessages)

	// Websocket routes. The list route must register before the room route
	// so "list" is not parsed as a room id.
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/chat/list", websocket.New(wsHandler.HandleListSocket))
	app.Get("/ws/chat/:room_id", websocket.New(wsHandler.HandleRoomSocket))

	app.Get("/health", func(c *fiber.Ctx) error {
		status := fiber.Map{"status": "ok", "redis": "up", "database": "up"}
		if err := redisCache.Ping(); err != nil {
			status["status"] = "degraded"
			status["redis"] = "down"
		}
		if sqlDB, err := db.DB(); err != nil || sqlDB.Ping() != nil {
			status["status"] = "degraded"
			status["database"] = "down"
		}
		return c.JSON(status)
	})

	flushScheduler := scheduler.NewManager(flushService)
	if err := flushScheduler.RegisterJobs(); err != nil {
		log.Fatal("Failed to register flush job:", err)
	}
	flushScheduler.Start()

	// Serve until signalled, then flush what is still buffered.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-shutdown
		log.Println("shutting down...")
		if err := app.Shutdown(); err != nil {
			log.Printf("server shutdown error: %v", err)
		}
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}
	if err := app.Listen(":" + port); err != nil {
		log.Printf("server stopped: %v", err)
	}

	flushScheduler.Stop()
	if err := redisCache.Close(); err != nil {
		log.Printf("redis close error: %v", err)
	}
}
