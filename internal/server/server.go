package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/craftbase/paylane/internal/config"
	invoicedomain "github.com/craftbase/paylane/internal/invoice/domain"
	projectdomain "github.com/craftbase/paylane/internal/project/domain"
	taskdomain "github.com/craftbase/paylane/internal/task/domain"
	walletdomain "github.com/craftbase/paylane/internal/wallet/domain"
)

// Module wires the HTTP surface. Domain modules are assembled by the caller;
// this module only needs their services present in the graph.
var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

type EngineParams struct {
	fx.In

	Log      *zap.Logger
	Registry *prometheus.Registry `optional:"true"`
}

func NewEngine(p EngineParams) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(p.Log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if p.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{})))
	}

	return r
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
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
	genID      *snowflake.Node
	projectSvc projectdomain.Service
	taskSvc    taskdomain.Service
	invoiceSvc invoicedomain.Service
	walletSvc  walletdomain.Service
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	GenID      *snowflake.Node
	ProjectSvc projectdomain.Service
	TaskSvc    taskdomain.Service
	InvoiceSvc invoicedomain.Service
	WalletSvc  walletdomain.Service
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:     p.Gin,
		genID:      p.GenID,
		projectSvc: p.ProjectSvc,
		taskSvc:    p.TaskSvc,
		invoiceSvc: p.InvoiceSvc,
		walletSvc:  p.WalletSvc,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")

	projects := api.Group("/projects")
	projects.POST("", s.createProject)
	projects.GET("/:id", s.getProject)
	projects.GET("/:id/eligibility", s.projectEligibility)
	projects.POST("/:id/invoices/upfront", s.createUpfrontInvoice)
	projects.POST("/:id/invoices/final", s.createFinalInvoice)
	projects.POST("/:id/tasks/:taskId/invoice", s.createTaskInvoice)

	tasks := api.Group("/tasks")
	tasks.GET("/:id", s.getTask)
	tasks.POST("/:id/submit", s.submitTask)
	tasks.POST("/:id/approve", s.approveTask)
	tasks.POST("/:id/reject", s.rejectTask)

	invoices := api.Group("/invoices")
	invoices.GET("", s.listInvoices)
	invoices.GET("/:invoiceNumber", s.getInvoice)
	invoices.GET("/:invoiceNumber/transactions", s.invoiceTransactions)
	invoices.POST("/:invoiceNumber/trigger", s.triggerInvoice)
	invoices.POST("/:invoiceNumber/execute", s.executeInvoice)

	wallets := api.Group("/wallets")
	wallets.GET("/:userId", s.getWallet)
	wallets.GET("/:userId/entries", s.walletEntries)
	wallets.POST("/:userId/withdrawals", s.requestWithdrawal)
	wallets.POST("/:userId/withdrawals/complete", s.completeWithdrawal)
}
