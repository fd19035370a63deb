package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/makoban/koubo-navi/internal/analysis"
	analysisdomain "github.com/makoban/koubo-navi/internal/analysis/domain"
	"github.com/makoban/koubo-navi/internal/area"
	areadomain "github.com/makoban/koubo-navi/internal/area/domain"
	"github.com/makoban/koubo-navi/internal/billing"
	billingdomain "github.com/makoban/koubo-navi/internal/billing/domain"
	"github.com/makoban/koubo-navi/internal/companyprofile"
	profiledomain "github.com/makoban/koubo-navi/internal/companyprofile/domain"
	"github.com/makoban/koubo-navi/internal/config"
	"github.com/makoban/koubo-navi/internal/identity"
	identitydomain "github.com/makoban/koubo-navi/internal/identity/domain"
	"github.com/makoban/koubo-navi/internal/observability"
	obsmiddleware "github.com/makoban/koubo-navi/internal/observability/logger"
	obsmetrics "github.com/makoban/koubo-navi/internal/observability/metrics"
	obstracing "github.com/makoban/koubo-navi/internal/observability/tracing"
	"github.com/makoban/koubo-navi/internal/opportunity"
	opportunitydomain "github.com/makoban/koubo-navi/internal/opportunity/domain"
	"github.com/makoban/koubo-navi/internal/providers/ai"
	"github.com/makoban/koubo-navi/internal/providers/webfetch"
	"github.com/makoban/koubo-navi/internal/ratelimit"
	"github.com/makoban/koubo-navi/internal/screening"
	screeningdomain "github.com/makoban/koubo-navi/internal/screening/domain"
	"github.com/makoban/koubo-navi/internal/user"
	userdomain "github.com/makoban/koubo-navi/internal/user/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	identity.Module,
	ai.Module,
	webfetch.Module,
	ratelimit.Module,
	user.Module,
	area.Module,
	companyprofile.Module,
	opportunity.Module,
	screening.Module,
	analysis.Module,
	billing.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug: obsCfg.Debug(),
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Authorization", "Content-Type", "Stripe-Signature", "X-Request-Id"},
		MaxAge:       12 * time.Hour,
	}))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(cfg, obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
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
	engine         *gin.Engine
	cfg            config.Config
	log            *zap.Logger
	verifier       identitydomain.Verifier
	aiLimiter      *ratelimit.AILimiter
	obsMetrics     *obsmetrics.Metrics
	userSvc        userdomain.Service
	areaSvc        areadomain.Service
	profileSvc     profiledomain.Service
	opportunitySvc opportunitydomain.Service
	screeningSvc   screeningdomain.Service
	analysisSvc    analysisdomain.Service
	billingSvc     billingdomain.Service
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	Log            *zap.Logger
	Verifier       identitydomain.Verifier
	AILimiter      *ratelimit.AILimiter
	ObsMetrics     *obsmetrics.Metrics
	UserSvc        userdomain.Service
	AreaSvc        areadomain.Service
	ProfileSvc     profiledomain.Service
	OpportunitySvc opportunitydomain.Service
	ScreeningSvc   screeningdomain.Service
	AnalysisSvc    analysisdomain.Service
	BillingSvc     billingdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		log:            p.Log.Named("server"),
		verifier:       p.Verifier,
		aiLimiter:      p.AILimiter,
		obsMetrics:     p.ObsMetrics,
		userSvc:        p.UserSvc,
		areaSvc:        p.AreaSvc,
		profileSvc:     p.ProfileSvc,
		opportunitySvc: p.OpportunitySvc,
		screeningSvc:   p.ScreeningSvc,
		analysisSvc:    p.AnalysisSvc,
		billingSvc:     p.BillingSvc,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.GET("/areas", s.ListAreas)
	api.POST("/webhook", s.Webhook)

	api.POST("/analyze-company", s.AuthRequired(), s.AIRateLimit("analyze_company"), s.AnalyzeCompany)
	api.POST("/register", s.AuthRequired(), s.Register)

	userGroup := api.Group("/user", s.AuthRequired())
	{
		userGroup.GET("/profile", s.GetProfile)
		userGroup.PUT("/profile", s.PutProfile)
		userGroup.PUT("/areas", s.PutAreas)
		userGroup.GET("/opportunities", s.ListOpportunities)
		userGroup.GET("/subscription", s.GetSubscription)
		userGroup.POST("/screen", s.AIRateLimit("screen"), s.TriggerScreening)
	}

	api.POST("/opportunity/analyze", s.AuthRequired(), s.AIRateLimit("opportunity_analyze"), s.AnalyzeOpportunity)

	api.POST("/checkout", s.AuthRequired(), s.Checkout)
	api.POST("/cancel-subscription", s.AuthRequired(), s.CancelSubscription)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorResponse{
			Error: "未定義: " + c.Request.Method + " " + c.Request.URL.Path,
		})
	})
}
