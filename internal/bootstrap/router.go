package bootstrap

import (
	"database/sql"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/docwave/docwave-backend/config"
	httpapi "github.com/docwave/docwave-backend/internal/api/http"
	"github.com/docwave/docwave-backend/internal/api/http/middleware"
	"github.com/docwave/docwave-backend/internal/documents"
	"github.com/docwave/docwave-backend/internal/versioning/cache"
	verhttp "github.com/docwave/docwave-backend/internal/versioning/http"
	"github.com/docwave/docwave-backend/internal/versioning/repository"
	"github.com/docwave/docwave-backend/internal/versioning/service"
	"github.com/docwave/docwave-backend/internal/versioning/strategy"
)

type RouterDeps struct {
	ServiceName string
	Version     string
	DB          *pgxpool.Pool
	LedgerDB    *sql.DB
	Redis       *redis.Client
	Cfg         *config.Config
}

// BuildRouter wires the full service graph and mounts every route. The
// returned RetentionService is shared with the cron scheduler so manual
// triggers and scheduled runs go through the same instance.
func BuildRouter(dep RouterDeps) (*gin.Engine, *service.RetentionService) {
	r := gin.Default()
	r.Use(middleware.RequestID())

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.DB, dep.LedgerDB, dep.Redis)
	healthHandler.RegisterRoutes(r)

	docRepo := documents.NewRepo(dep.DB)
	verRepo := repository.NewVersionRepository(dep.LedgerDB)
	latestCache := cache.NewLatestVersionCache(dep.Redis)

	vcfg := dep.Cfg.Versioning
	selector := strategy.NewSelector(verRepo, vcfg.FullSnapshotInterval, vcfg.MaxChangeRatio, vcfg.MinDeltaSavings)

	versions := service.NewVersionService(verRepo, docRepo, latestCache, selector, vcfg.MaxContentBytes)
	conflicts := service.NewConflictService(verRepo, latestCache)
	compare := service.NewCompareService(verRepo)

	rcfg := dep.Cfg.Retention
	retention := service.NewRetentionService(verRepo, docRepo, versions,
		rcfg.DayBucketAfter, rcfg.WeekBucketAfter, rcfg.MaxAgeDays, rcfg.DeletesPerSecond)

	api := r.Group("/api/v1")
	documents.Register(api, docRepo)

	handler := verhttp.New(versions, conflicts, compare, retention, rcfg.KeepDays)
	handler.Register(api)

	return r, retention
}
