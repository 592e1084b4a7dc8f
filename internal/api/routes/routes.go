package routes

import (
	"cargo-connect-api-server/internal/api/handlers"
	"cargo-connect-api-server/internal/api/middleware"
	"cargo-connect-api-server/internal/auth"
	"cargo-connect-api-server/internal/lifecycle"
	"cargo-connect-api-server/internal/models"
	"cargo-connect-api-server/internal/s3"
	"cargo-connect-api-server/internal/socket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
)

// SetupRouter wires every handler into the gin engine.
func SetupRouter(
	db *mongo.Database,
	tokens *auth.Manager,
	lifecycleSvc *lifecycle.Service,
	s3Uploader *s3.Uploader,
	wsHub *socket.Hub,
	broker *socket.TopicBroker,
) *gin.Engine {
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(cors.Default())

	authHandler := &handlers.AuthHandler{DB: db, Tokens: tokens}
	offerHandler := &handlers.OfferHandler{DB: db, Lifecycle: lifecycleSvc, S3Uploader: s3Uploader}
	bidHandler := &handlers.BidHandler{DB: db, Lifecycle: lifecycleSvc}
	deliveryHandler := &handlers.DeliveryHandler{DB: db, Lifecycle: lifecycleSvc}
	providerHandler := &handlers.ProviderHandler{DB: db, S3Uploader: s3Uploader}
	chatHandler := &handlers.ChatHandler{DB: db, Hub: wsHub}
	notificationHandler := &handlers.NotificationHandler{DB: db}
	webSocketHandler := &handlers.WebSocketHandler{DB: db, Hub: wsHub, Broker: broker, Tokens: tokens}

	apiV1 := router.Group("/api/v1")
	{
		// WebSocket routes authenticate via query token themselves.
		apiV1.GET("/ws", webSocketHandler.ServeWs)
		apiV1.GET("/ws/deliveries/:id", webSocketHandler.ServeDeliveryWs)

		// === PUBLIC ROUTES ===

		authRoutes := apiV1.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh", authHandler.Refresh)
		}

		// === PROTECTED ROUTES ===

		protected := apiV1.Group("/")
		protected.Use(middleware.Authenticate(tokens))
		{
			protected.GET("/auth/me", authHandler.Me)
			protected.PATCH("/users/me", authHandler.UpdateMe)

			offers := protected.Group("/offers")
			{
				offers.GET("/", offerHandler.GetOffers)
				offers.GET("/:id", offerHandler.GetOffer)
				offers.GET("/:id/bids", bidHandler.GetOfferBids)

				// Only requesters create and manage offers.
				requesterOffers := offers.Group("/")
				requesterOffers.Use(middleware.Authorize(models.RoleRequester, models.RoleAdmin))
				{
					requesterOffers.POST("/", offerHandler.CreateOffer)
					requesterOffers.POST("/:id/cancel", offerHandler.CancelOffer)
					requesterOffers.POST("/:id/photos", offerHandler.UploadOfferPhoto)
				}

				// Only providers bid.
				providerOffers := offers.Group("/")
				providerOffers.Use(middleware.Authorize(models.RoleProvider))
				{
					providerOffers.POST("/:id/bids", bidHandler.PlaceBid)
				}
			}

			bids := protected.Group("/bids")
			{
				bids.GET("/my", middleware.Authorize(models.RoleProvider), bidHandler.GetMyBids)

				requesterBids := bids.Group("/")
				requesterBids.Use(middleware.Authorize(models.RoleRequester, models.RoleAdmin))
				{
					requesterBids.POST("/:id/accept", bidHandler.AcceptBid)
					requesterBids.POST("/:id/reject", bidHandler.RejectBid)
					requesterBids.POST("/:id/counter", bidHandler.CounterBid)
				}

				bids.POST("/:id/counter-response", middleware.Authorize(models.RoleProvider), bidHandler.RespondToCounter)
			}

			deliveries := protected.Group("/deliveries")
			{
				deliveries.GET("/", deliveryHandler.GetDeliveries)
				deliveries.GET("/:id", deliveryHandler.GetDelivery)
				deliveries.GET("/:id/tracking", deliveryHandler.GetTracking)

				providerDeliveries := deliveries.Group("/")
				providerDeliveries.Use(middleware.Authorize(models.RoleProvider))
				{
					providerDeliveries.POST("/:id/advance", deliveryHandler.AdvanceDelivery)
					providerDeliveries.POST("/:id/confirm", deliveryHandler.ConfirmDelivery)
				}
			}

			providers := protected.Group("/providers")
			{
				providers.GET("/nearby", providerHandler.GetNearbyProviders)

				selfService := providers.Group("/")
				selfService.Use(middleware.Authorize(models.RoleProvider))
				{
					selfService.PUT("/location", providerHandler.UpdateLocation)
					selfService.POST("/vehicle", providerHandler.UpsertVehicle)
					selfService.POST("/vehicle/documents", providerHandler.UploadVehicleDocument)
				}
			}

			protected.GET("/conversations", chatHandler.GetConversations)
			protected.GET("/conversations/:id/messages", chatHandler.GetMessages)
			protected.POST("/messages", chatHandler.SendMessage)

			protected.GET("/notifications", notificationHandler.GetNotifications)
			protected.POST("/notifications/:id/read", notificationHandler.MarkRead)

			admin := protected.Group("/admin")
			admin.Use(middleware.Authorize(models.RoleAdmin))
			{
				admin.GET("/users", providerHandler.ListUsers)
				admin.POST("/providers/:id/verify", providerHandler.VerifyProvider)
			}
		}
	}

	return router
}
