package http

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	DB        string    `json:"db,omitempty"`
	Ledger    string    `json:"ledger,omitempty"`
	Cache     string    `json:"cache,omitempty"`
}

type HealthHandler struct {
	serviceName string
	version     string
	pool        *pgxpool.Pool
	ledger      *sql.DB
	cache       *redis.Client
}

func NewHealthHandler(serviceName, version string, pool *pgxpool.Pool, ledger *sql.DB, cache *redis.Client) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		pool:        pool,
		ledger:      ledger,
		cache:       cache,
	}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	pingCtx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Service:   h.serviceName,
		Version:   h.version,
		DB:        "disabled",
		Ledger:    "disabled",
		Cache:     "disabled",
	}

	if h.pool != nil {
		resp.DB = pingStatus(h.pool.Ping(pingCtx))
	}
	if h.ledger != nil {
		resp.Ledger = pingStatus(h.ledger.PingContext(pingCtx))
	}
	if h.cache != nil {
		resp.Cache = pingStatus(h.cache.Ping(pingCtx).Err())
	}

	c.JSON(http.StatusOK, resp)
}

func pingStatus(err error) string {
	if err != nil {
		return "down"
	}
	return "up"
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.HealthCheck)
}
