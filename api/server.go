package api

import (
	"fmt"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/nhattran/livebid-BE/internal/auction"
	db "github.com/nhattran/livebid-BE/internal/db"
	"github.com/nhattran/livebid-BE/internal/event"
	"github.com/nhattran/livebid-BE/internal/token"
	"github.com/nhattran/livebid-BE/internal/util"
	"github.com/rs/zerolog/log"
)

type Server struct {
	router      *gin.Engine
	dbStore     db.Store
	engine      *auction.Engine
	tokenMaker  token.Maker
	config      *util.Config
	eventSender event.Sender
}

// NewServer creates a new HTTP server and set up routing.
func NewServer(store db.Store, engine *auction.Engine, eventSender event.Sender, config *util.Config) (*Server, error) {
	tokenMaker, err := token.NewJWTMaker(config.TokenSecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create token maker: %w", err)
	}
	log.Info().Msg("Token maker created successfully ✅")

	server := &Server{
		dbStore:     store,
		engine:      engine,
		tokenMaker:  tokenMaker,
		config:      config,
		eventSender: eventSender,
	}

	server.setupRouter()
	return server, nil
}

// setupRouter configures the HTTP server routes.
func (server *Server) setupRouter() *gin.Engine {
	gin.ForceConsoleColor()
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     server.config.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Idempotency-Key"},
		AllowCredentials: true,
	}))

	v1 := router.Group("/v1")

	// Public auction APIs (no login required).
	auctionPublicGroup := v1.Group("/auctions")
	{
		auctionPublicGroup.GET("", server.listAuctions)
		auctionPublicGroup.GET(":auctionID", server.getAuctionDetails)
		auctionPublicGroup.GET(":auctionID/bids", server.getAuctionBids)
		auctionPublicGroup.GET(":auctionID/stream", server.streamAuctionEvents)
	}

	// APIs that act on behalf of an authenticated bidder or seller.
	auctionGroup := v1.Group("/auctions", authMiddleware(server.tokenMaker))
	{
		auctionGroup.POST("", server.createAuction)
		auctionGroup.POST(":auctionID/bids", server.placeBid)
		auctionGroup.GET(":auctionID/winner", server.getAuctionWinner)
	}

	server.router = router
	return router
}

// Start runs the HTTP server on a specific address.
func (server *Server) Start(address string) error {
	return server.router.Run(address)
}
