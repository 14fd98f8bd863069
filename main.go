package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"groupnet-service/internal/blob"
	"groupnet-service/internal/config"
	"groupnet-service/internal/db"
	"groupnet-service/internal/engine"
	"groupnet-service/internal/handlers"
	"groupnet-service/internal/middleware"
	"groupnet-service/internal/observability"
	"groupnet-service/internal/rabbitmq"
	"groupnet-service/internal/repositories"
	"groupnet-service/internal/telemetry"
	"groupnet-service/internal/ws"
)

const serviceName = "groupnet-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	shutdownTracing, err := telemetry.SetupTracing(ctx, serviceName, cfg.OTLPEndpoint, cfg.Environment)
	if err != nil {
		log.Printf("tracing disabled: %v", err)
		shutdownTracing = func(context.Context) error { return nil }
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	profileRepo := repositories.NewProfileRepo(database)
	groupRepo := repositories.NewGroupRepo(database)
	postRepo := repositories.NewPostRepo(database)
	messageRepo := repositories.NewMessageRepo(database)

	eng := engine.New()
	if err := hydrate(ctx, eng, profileRepo, groupRepo, postRepo, messageRepo); err != nil {
		log.Fatalf("failed to hydrate engine: %v", err)
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	audit := telemetry.NewAuditEmitter(publisher, cfg.AuditRoutingKey, serviceName, cfg.Environment)

	if cfg.AMQPURL != "" {
		eventsPublisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Printf("event publisher disabled: %v", err)
		} else {
			observability.SetPublisher(eventsPublisher)
			defer eventsPublisher.Close()
		}
	}

	resolver := blob.NewResolver()
	hub := ws.NewHub()

	groupHandler := handlers.NewGroupHandler(eng, groupRepo, resolver, audit)
	contentHandler := handlers.NewContentHandler(eng, postRepo, messageRepo, resolver, hub, audit)
	profileHandler := handlers.NewProfileHandler(eng, profileRepo, resolver, audit)

	validator := middleware.NewJWTValidator(cfg.JWTSecret)
	feedWS := ws.NewFeedHandler(hub, eng, validator)

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(validator)

	router.GET("/me", authMiddleware, profileHandler.Me)
	router.PUT("/me", authMiddleware, profileHandler.UpdateMe)

	router.POST("/groups", authMiddleware, groupHandler.CreateGroup)
	router.GET("/groups", authMiddleware, groupHandler.ListGroups)
	router.GET("/groups/discover", authMiddleware, groupHandler.Discover)
	router.GET("/groups/:group_id", authMiddleware, groupHandler.GetGroup)
	router.POST("/groups/:group_id/join", authMiddleware, groupHandler.RequestJoin)
	router.GET("/groups/:group_id/join-requests", authMiddleware, groupHandler.PendingJoins)
	router.POST("/groups/:group_id/join-requests/:user_id/approve", authMiddleware, groupHandler.ApproveJoin)
	router.POST("/groups/:group_id/connections", authMiddleware, groupHandler.RequestConnect)
	router.GET("/groups/:group_id/connection-requests", authMiddleware, groupHandler.PendingConnections)
	router.POST("/groups/:group_id/connection-requests/:from_group_id/approve", authMiddleware, groupHandler.ApproveConnect)

	router.GET("/feed", authMiddleware, contentHandler.Feed)
	router.GET("/groups/:group_id/posts", authMiddleware, contentHandler.GroupPosts)
	router.POST("/groups/:group_id/posts", authMiddleware, contentHandler.PublishPost)
	router.GET("/groups/:group_id/messages", authMiddleware, contentHandler.GetGroupMessages)
	router.POST("/groups/:group_id/messages", authMiddleware, contentHandler.PostGroupMessage)
	router.GET("/channels", authMiddleware, contentHandler.ListChannels)
	router.GET("/channels/:channel_id/messages", authMiddleware, contentHandler.GetChannelMessages)
	router.POST("/channels/:channel_id/messages", authMiddleware, contentHandler.PostChannelMessage)

	// WebSocket endpoints authenticate themselves; the token may arrive as a
	// query parameter since browsers cannot set headers on upgrade requests.
	router.GET("/ws/groups/:group_id", feedWS.HandleGroup)
	router.GET("/ws/channels/:channel_id", feedWS.HandleChannel)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	handlers.RegisterDebugRoutes(router, audit, cfg.DebugRoutes)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// hydrate loads the full record store into the engine. The store is the
// durable mirror; the engine answers every request from memory afterwards.
func hydrate(ctx context.Context, eng *engine.Engine, profileRepo repositories.ProfileRepository, groupRepo repositories.GroupRepository, postRepo repositories.PostRepository, messageRepo repositories.MessageRepository) error {
	profiles, err := profileRepo.ListProfiles(ctx)
	if err != nil {
		return err
	}
	groups, err := groupRepo.LoadGroups(ctx)
	if err != nil {
		return err
	}
	channels, err := groupRepo.LoadChannels(ctx)
	if err != nil {
		return err
	}
	posts, err := postRepo.LoadAll(ctx)
	if err != nil {
		return err
	}
	messages, err := messageRepo.LoadAll(ctx)
	if err != nil {
		return err
	}

	eng.Load(engine.Snapshot{
		Profiles: profiles,
		Groups:   groups,
		Channels: channels,
		Posts:    posts,
		Messages: messages,
	})
	log.Printf("hydrated engine: %d profiles, %d groups, %d channels, %d posts, %d messages",
		len(profiles), len(groups), len(channels), len(posts), len(messages))
	return nil
}
