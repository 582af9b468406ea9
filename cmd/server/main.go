package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"

	"github.com/codye1/chat.online.api/internal/cache"
	"github.com/codye1/chat.online.api/internal/handlers"
	"github.com/codye1/chat.online.api/internal/httpx"
	"github.com/codye1/chat.online.api/internal/middleware"
	"github.com/codye1/chat.online.api/internal/repository"
	"github.com/codye1/chat.online.api/internal/service"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName: "Chat Online API",
	})

	// Middleware
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     os.Getenv("ALLOWED_ORIGINS"),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
	}))

	// Initialize database connection
	db, err := repository.InitDB()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Initialize Redis cache
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if parsedDB, err := strconv.Atoi(dbStr); err == nil {
			redisDB = parsedDB
		}
	}

	redisCache := cache.NewRedisCache(redisAddr, redisPassword, redisDB)
	if err := redisCache.Ping(); err != nil {
		log.Printf("WARNING: Redis connection failed: %v. Running without cache.", err)
		redisCache = nil
	} else {
		log.Println("Redis cache connected successfully")
	}

	presenceCache := cache.NewPresenceCache(redisCache)
	summaryCache := cache.NewSummaryCache(redisCache)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	conversationRepo := repository.NewConversationRepository(db)

	// Initialize services
	userService := service.NewUserService(userRepo)
	presenceService := service.NewPresenceService(userRepo, presenceCache)
	conversationService := service.NewConversationService(conversationRepo, messageRepo, userRepo, presenceService, summaryCache)
	messageService := service.NewMessageService(messageRepo, conversationRepo)
	readReceiptService := service.NewReadReceiptService(conversationService, messageRepo)

	// Initialize handlers
	wsHandler := handlers.NewWebSocketHandler(conversationService, messageService, userService, presenceService, readReceiptService)
	conversationHandler := handlers.NewConversationHandler(conversationService, messageService, userService, presenceService, readReceiptService, wsHandler.GetHub())

	sendLimiter := limiter.New(limiter.Config{
		Max:        60,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			if uid, err := httpx.LocalUint(c, "userID"); err == nil {
				return "send:" + strconv.FormatUint(uint64(uid), 10)
			}
			return c.IP()
		},
	})

	// Protected routes
	api := app.Group("/api", middleware.OriginAllowed())
	protected := api.Group("/", middleware.AuthRequired())
	protected.Get("/conversations", conversationHandler.GetConversations)
	protected.Post("/conversations", conversationHandler.CreateConversation)
	protected.Get("/conversation", conversationHandler.GetConversation)
	protected.Get("/conversations/:id/messages", conversationHandler.GetMessages)
	protected.Post("/conversations/:id/messages", sendLimiter, conversationHandler.SendMessage)
	protected.Post("/conversations/:id/read", conversationHandler.MarkRead)
	protected.Get("/search", conversationHandler.Search)

	// WebSocket route (websocket upgrade needs special handling)
	app.Use(
		"/ws",
		middleware.OriginAllowed(),
		middleware.AuthRequired(),
		func(c *fiber.Ctx) error {
			// Upgrade to WebSocket
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		},
	)
	app.Get("/ws", websocket.New(wsHandler.HandleWebSocket))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "Chat Online API is running",
		})
	})

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s...", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
