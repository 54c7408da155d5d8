// Package gateway is the front-door router: REST surfaces for room
// lifecycle and wallet management, the WebSocket upgrade endpoint,
// and the webhook ingress entrypoint.
package gateway

import (
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/keentechcodes/swapwatch/internal/apperr"
	"github.com/keentechcodes/swapwatch/internal/config"
	"github.com/keentechcodes/swapwatch/internal/ingress"
	"github.com/keentechcodes/swapwatch/internal/metrics"
	"github.com/keentechcodes/swapwatch/internal/middleware"
	"github.com/keentechcodes/swapwatch/internal/room"
	"github.com/keentechcodes/swapwatch/internal/walletindex"
)

var roomCodeRe = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

type Gateway struct {
	engine     *gin.Engine
	registry   *room.Registry
	index      *walletindex.Index
	ingress    *ingress.Ingress
	upgrader   websocket.Upgrader
	logger     *logrus.Logger
	filterSync func()
}

func New(cfg *config.Config, registry *room.Registry, index *walletindex.Index, ing *ingress.Ingress, logger *logrus.Logger, filterSync func()) *Gateway {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.Logger(logger))
	engine.Use(middleware.RequestID())
	engine.Use(middleware.CORS())

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	engine.Use(limiter.Middleware())

	gw := &Gateway{
		engine:   engine,
		registry: registry,
		index:    index,
		ingress:  ing,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
			WriteBufferSize: cfg.WebSocket.WriteBufferSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		filterSync: filterSync,
	}
	gw.setupRoutes(cfg)
	return gw
}

func (g *Gateway) Engine() *gin.Engine { return g.engine }

func (g *Gateway) setupRoutes(cfg *config.Config) {
	g.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	g.engine.NoMethod(func(c *gin.Context) {
		c.AbortWithStatus(http.StatusNoContent)
	})

	g.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.Metrics.Enabled {
		path := cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		g.engine.GET(path, gin.WrapH(promhttp.Handler()))
	}

	g.engine.POST("/rooms", g.createRoom)
	g.engine.GET("/rooms/:code", g.getRoom)
	g.engine.POST("/rooms/:code/wallets", g.addWallet)
	g.engine.DELETE("/rooms/:code/wallets/:address", g.removeWallet)
	g.engine.GET("/rooms/:code/ws", g.serveWebSocket)

	g.engine.POST("/webhook/coinbase", g.webhook)
}

func roomCode(c *gin.Context) (string, error) {
	code := c.Param("code")
	if code == "" || !roomCodeRe.MatchString(code) {
		return "", apperr.Validation("room code must be non-empty alphanumeric/-")
	}
	return code, nil
}

func (g *Gateway) respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindConflict:
		status = http.StatusConflict
	case apperr.KindNotFound:
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

type createRoomBody struct {
	Code      string `json:"code"`
	CreatedBy *string `json:"createdBy"`
	Config    *struct {
		Threshold       *float64 `json:"threshold"`
		TelegramWebhook *string  `json:"telegramWebhook"`
	} `json:"config"`
}

func (g *Gateway) createRoom(c *gin.Context) {
	var body createRoomBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if body.Code == "" || !roomCodeRe.MatchString(body.Code) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "room code must be non-empty alphanumeric/-"})
		return
	}

	req := room.CreateRoomRequest{CreatedBy: body.CreatedBy}
	if body.Config != nil {
		req.Threshold = body.Config.Threshold
		req.TelegramWebhook = body.Config.TelegramWebhook
	}

	actor := g.registry.GetOrCreate(body.Code)
	cfg, err := actor.CreateRoom(c.Request.Context(), req)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cfg)
}

func (g *Gateway) getRoom(c *gin.Context) {
	code, err := roomCode(c)
	if err != nil {
		g.respondError(c, err)
		return
	}

	actor, ok := g.registry.Get(code)
	if !ok {
		g.respondError(c, apperr.NotFound("room does not exist"))
		return
	}

	snap, err := actor.Snapshot(c.Request.Context())
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

type addWalletBody struct {
	Wallet  string  `json:"wallet"`
	Address string  `json:"address"`
	Label   *string `json:"label"`
}

func (g *Gateway) addWallet(c *gin.Context) {
	code, err := roomCode(c)
	if err != nil {
		g.respondError(c, err)
		return
	}

	var body addWalletBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	address := body.Address
	if address == "" {
		address = body.Wallet
	}

	actor, ok := g.registry.Get(code)
	if !ok {
		g.respondError(c, apperr.NotFound("room does not exist"))
		return
	}

	entry, err := actor.AddWallet(c.Request.Context(), room.AddWalletRequest{Address: address, Label: body.Label})
	if err != nil {
		g.respondError(c, err)
		return
	}

	if err := g.index.AddWalletToRoom(c.Request.Context(), entry.Address, code); err != nil {
		g.logger.WithError(err).Warn("failed to update wallet index after add; will self-heal")
	} else if g.filterSync != nil {
		go g.filterSync()
	}

	c.JSON(http.StatusCreated, entry)
}

func (g *Gateway) removeWallet(c *gin.Context) {
	code, err := roomCode(c)
	if err != nil {
		g.respondError(c, err)
		return
	}
	address := c.Param("address")

	actor, ok := g.registry.Get(code)
	if !ok {
		g.respondError(c, apperr.NotFound("room does not exist"))
		return
	}

	if err := actor.RemoveWallet(c.Request.Context(), address); err != nil {
		g.respondError(c, err)
		return
	}

	if err := g.index.RemoveWalletFromRoom(c.Request.Context(), strings.ToLower(address), code); err != nil {
		g.logger.WithError(err).Warn("failed to update wallet index after remove; will self-heal")
	} else if g.filterSync != nil {
		go g.filterSync()
	}

	c.JSON(http.StatusOK, gin.H{})
}

func (g *Gateway) serveWebSocket(c *gin.Context) {
	code, err := roomCode(c)
	if err != nil {
		g.respondError(c, err)
		return
	}

	actor, ok := g.registry.Get(code)
	if !ok {
		g.respondError(c, apperr.NotFound("room does not exist"))
		return
	}

	actor.ServeWebSocket(c.Writer, c.Request, g.upgrader)
}

func (g *Gateway) webhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		metrics.WebhookRequests.WithLabelValues("bad_request").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	signature := c.GetHeader("X-Webhook-Signature")
	if signature == "" {
		metrics.WebhookRequests.WithLabelValues("unauthorized").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing signature"})
		return
	}
	if !g.ingress.VerifySignature(body, signature) {
		metrics.WebhookRequests.WithLabelValues("unauthorized").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		return
	}

	result, err := g.ingress.Process(c.Request.Context(), body)
	if err != nil {
		metrics.WebhookRequests.WithLabelValues("error").Inc()
		g.respondError(c, err)
		return
	}
	metrics.WebhookRequests.WithLabelValues(result.Status).Inc()
	c.JSON(http.StatusOK, result)
}
