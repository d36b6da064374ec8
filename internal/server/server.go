package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/linkrail/linkrail/internal/certificate"
	"github.com/linkrail/linkrail/internal/config"
	"github.com/linkrail/linkrail/internal/customdomain"
	cddomain "github.com/linkrail/linkrail/internal/customdomain/domain"
	"github.com/linkrail/linkrail/internal/observability"
	obsmiddleware "github.com/linkrail/linkrail/internal/observability/logger"
	obsmetrics "github.com/linkrail/linkrail/internal/observability/metrics"
	obstracing "github.com/linkrail/linkrail/internal/observability/tracing"
	"github.com/linkrail/linkrail/internal/trackinglink"
	tldomain "github.com/linkrail/linkrail/internal/trackinglink/domain"
	"github.com/linkrail/linkrail/internal/verifier"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	certificate.Module,
	customdomain.Module,
	trackinglink.Module,
	verifier.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine) {
	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	db         *gorm.DB
	genID      *snowflake.Node
	domainSvc  cddomain.Service
	linkSvc    tldomain.Service
	obsMetrics *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	DB         *gorm.DB
	GenID      *snowflake.Node
	DomainSvc  cddomain.Service
	LinkSvc    tldomain.Service
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		db:         p.DB,
		genID:      p.GenID,
		domainSvc:  p.DomainSvc,
		linkSvc:    p.LinkSvc,
		obsMetrics: p.ObsMetrics,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")
	api.Use(TenantContext())

	domains := api.Group("/domains")
	domains.POST("", s.CreateDomain)
	domains.GET("", s.ListDomains)
	domains.GET("/stats", s.DomainStats)
	domains.GET("/best", s.BestDomain)
	domains.GET("/verified", s.VerifiedDomains)
	domains.GET("/:id/instructions", s.DomainInstructions)
	domains.POST("/:id/verify", s.VerifyDomain)
	domains.POST("/:id/certificate", s.RequestCertificate)
	domains.GET("/:id/certificate", s.ValidateCertificate)
	domains.DELETE("/:id", s.DeleteDomain)

	api.DELETE("/dns-cache", s.ClearDNSCache)

	offers := api.Group("/offers")
	offers.POST("", s.CreateOffer)
	offers.POST("/:id/links", s.CreateLink)
	offers.GET("/:id/links", s.ListLinks)
}
