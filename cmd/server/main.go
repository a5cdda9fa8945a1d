package main

import (
	"os"
	"time"

	"github.com/factoryia/fincasya-new/internal/api"
	"github.com/factoryia/fincasya-new/internal/catalog"
	"github.com/factoryia/fincasya-new/internal/composer"
	"github.com/factoryia/fincasya-new/internal/config"
	"github.com/factoryia/fincasya-new/internal/conversation"
	"github.com/factoryia/fincasya-new/internal/database"
	"github.com/factoryia/fincasya-new/internal/jobs"
	"github.com/factoryia/fincasya-new/internal/knowledge"
	"github.com/factoryia/fincasya-new/internal/listings"
	"github.com/factoryia/fincasya-new/internal/llm"
	"github.com/factoryia/fincasya-new/internal/webhook"
	"github.com/factoryia/fincasya-new/internal/whatsapp"
	"github.com/factoryia/fincasya-new/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	db, err := database.Open(cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		log.Fatal().Err(err).Msg("database setup failed")
	}

	dispatcher := jobs.NewDispatcher(cfg.JobQueueSize)
	dispatcher.Start()
	defer dispatcher.Stop()

	hub := ws.NewHub()
	go hub.Run()

	waClient := whatsapp.NewClient(cfg)
	metaClient := catalog.NewMetaClient(cfg)
	llmClient := llm.NewClient(cfg)

	conversations := conversation.NewService(db)
	resolver := catalog.NewResolver(db)
	linker := catalog.NewLinker(db, metaClient, dispatcher)
	listingSvc := listings.NewService(db)
	searcher := knowledge.NewSearcher(db, llmClient)

	replyComposer := composer.New(conversations, listingSvc, resolver, searcher, llmClient, waClient, waClient)
	webhookHandler := webhook.NewHandler(db, conversations, replyComposer, hub)
	catalogHandler := api.NewCatalogHandler(db, linker, dispatcher)
	conversationHandler := api.NewConversationHandler(db, conversations)

	r := gin.Default()

	// CORS Middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Webhook Routes
	r.GET("/webhook", webhookHandler.Health)
	r.POST("/webhook", webhookHandler.Receive)

	// Live dashboard feed
	r.GET("/ws", func(c *gin.Context) {
		hub.ServeWS(c.Writer, c.Request)
	})

	apiGroup := r.Group("/api")
	{
		// Catalog Routes
		apiGroup.GET("/catalogs", catalogHandler.GetCatalogs)
		apiGroup.POST("/catalogs", catalogHandler.CreateCatalog)
		apiGroup.PUT("/catalogs/:id", catalogHandler.UpdateCatalog)
		apiGroup.POST("/catalogs/resync", catalogHandler.Resync)

		// Finca Catalog Link Routes
		apiGroup.GET("/fincas/:fincaId/catalogs", catalogHandler.GetFincaLinks)
		apiGroup.PUT("/fincas/:fincaId/catalogs", catalogHandler.ReplaceFincaLinks)
		apiGroup.PUT("/fincas/:fincaId/catalogs/:catalogId", catalogHandler.LinkFinca)
		apiGroup.DELETE("/fincas/:fincaId/catalogs/:catalogId", catalogHandler.UnlinkFinca)

		// Conversation Routes
		apiGroup.GET("/conversations", conversationHandler.GetConversations)
		apiGroup.GET("/conversations/:id/messages", conversationHandler.GetMessages)
		apiGroup.POST("/conversations/:id/escalate", conversationHandler.Escalate)
		apiGroup.POST("/conversations/:id/resolve", conversationHandler.Resolve)
		apiGroup.POST("/conversations/:id/reopen", conversationHandler.Reopen)
	}

	log.Info().Str("port", cfg.Port).Msg("server starting")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	if os.Getenv("GIN_MODE") != "release" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}
