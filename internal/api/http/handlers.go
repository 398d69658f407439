package http

import (
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/ai4/internal/artifact"
	"github.com/GriffinCanCode/ai4/internal/bridge"
	"github.com/GriffinCanCode/ai4/internal/ledger"
	"github.com/GriffinCanCode/ai4/internal/monitoring"
)

// Defaults fill in the optional fields of an inference request.
type Defaults struct {
	Payer string
	Cost  int64
}

// Handlers contains all HTTP handlers of the bridge server. The registry
// and ledger are plain files without locking, so every handler touching
// them runs under one mutex.
type Handlers struct {
	bridge   *bridge.Bridge
	metrics  *monitoring.Metrics
	defaults Defaults

	mu sync.Mutex
}

// NewHandlers creates a new handler set
func NewHandlers(b *bridge.Bridge, metrics *monitoring.Metrics, defaults Defaults) *Handlers {
	return &Handlers{
		bridge:   b,
		metrics:  metrics,
		defaults: defaults,
	}
}

// Register mounts every route on router.
func (h *Handlers) Register(router gin.IRouter) {
	router.GET("/", h.Root)
	router.GET("/health", h.Health)
	router.GET("/models", h.ListModels)
	router.POST("/infer", h.Infer)
	router.GET("/balance/:who", h.Balance)
	router.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	router.GET("/metrics/json", h.MetricsJSON)
}

// Root handles the status check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "ai4 bridge",
		"version": artifact.Version,
		"symbol":  ledger.Symbol,
	})
}

// Health reports registry and ledger totals
func (h *Handlers) Health(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	stats, err := h.bridge.Registry().Stats()
	if err != nil {
		h.respondError(c, err)
		return
	}
	supply, err := h.bridge.Ledger().Supply()
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"registry": stats,
		"ledger":   gin.H{"supply": supply, "symbol": ledger.Symbol},
	})
}

// ListModels lists every deployed model in deploy order
func (h *Handlers) ListModels(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	records, err := h.bridge.Models()
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bridge.ModelsResponse{Models: records})
}

// Infer runs a paid inference
func (h *Handlers) Infer(c *gin.Context) {
	var req bridge.InferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, bridge.ErrorResponse{
				Error: "request body too large",
				Code:  bridge.CodeBadRequest,
			})
			return
		}
		c.JSON(http.StatusBadRequest, bridge.ErrorResponse{
			Error: "invalid request: " + err.Error(),
			Code:  bridge.CodeBadRequest,
		})
		return
	}

	payer := strings.TrimSpace(req.Payer)
	if payer == "" {
		payer = h.defaults.Payer
	}
	cost := h.defaults.Cost
	if req.Cost != nil {
		cost = *req.Cost
	}

	h.mu.Lock()
	receipt, err := h.bridge.Infer(req.URI, *req.Input, payer, cost)
	h.mu.Unlock()
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !receipt.Finite() {
		c.JSON(http.StatusUnprocessableEntity, bridge.ErrorResponse{
			Error: bridge.ErrNonFiniteOutput.Error(),
			Code:  bridge.CodeNonFiniteOutput,
		})
		return
	}

	c.JSON(http.StatusOK, receipt)
}

// Balance returns the MAT balance of one identity
func (h *Handlers) Balance(c *gin.Context) {
	who := c.Param("who")

	h.mu.Lock()
	bal, err := h.bridge.Balance(who)
	h.mu.Unlock()
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, bridge.BalanceResponse{
		Who:     who,
		Balance: bal,
		Symbol:  ledger.Symbol,
	})
}

// MetricsJSON returns the metrics snapshot as JSON
func (h *Handlers) MetricsJSON(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.Snapshot())
}

func (h *Handlers) respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	status, code := bridge.ErrorCode(err)
	c.JSON(status, bridge.ErrorResponse{Error: err.Error(), Code: code})
}
