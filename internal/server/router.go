package server

import (
	"auction-engine/internal/engine"
	"auction-engine/internal/fanout"
	"auction-engine/internal/payments"
	"auction-engine/internal/repository"
	"auction-engine/internal/store"
	handler "auction-engine/services/auction/handler"

	"github.com/gin-gonic/gin"
)

// Deps carries everything the router wires together.
type Deps struct {
	Store        *store.StateStore
	Repo         repository.AuctionDB
	Engine       *engine.AdmissionEngine
	Events       *fanout.Fanout
	Intents      payments.IntentCreator
	UploadDir    string
	FanoutBuffer int
}

// SetupRouter configures all Gin routes for the application
func SetupRouter(deps Deps) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging

	auctionHandler := handler.NewAuctionHandler(deps.Store, deps.Repo, deps.Intents, deps.UploadDir)
	authHandler := handler.NewAuthHandler(deps.Repo)
	wsHandler := NewWSHandler(deps.Engine, deps.Events, deps.FanoutBuffer)

	api := router.Group("/api")
	{
		api.GET("/auctions", auctionHandler.GetAuctionsHandler)
		api.GET("/auctions/:auction_id", auctionHandler.GetAuctionHandler)
		api.POST("/assets", auctionHandler.CreateAssetHandler)
		api.GET("/bids/:auction_id", auctionHandler.GetBidsHandler)

		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.RegisterHandler)
			auth.POST("/login", authHandler.LoginHandler)
		}

		payment := api.Group("/payment")
		{
			payment.POST("/create-payment-intent", auctionHandler.CreatePaymentIntentHandler)
		}

		documents := api.Group("/documents")
		{
			documents.POST("/upload", auctionHandler.UploadDocumentHandler)
			documents.GET("/:filename", auctionHandler.DownloadDocumentHandler)
		}
	}

	router.GET("/ws", wsHandler.Handle)

	return router
}
