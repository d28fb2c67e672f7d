package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"studio-orders/config"
	adminapi "studio-orders/internal/api/admin"
	authapi "studio-orders/internal/api/auth"
	"studio-orders/internal/api/billing"
	ordersapi "studio-orders/internal/api/orders"
	"studio-orders/internal/api/plans"
	stripewebhooks "studio-orders/internal/api/stripewebhook"
	usersapi "studio-orders/internal/api/users"
	routes "studio-orders/internal/app/http"
	"studio-orders/internal/logging"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/stripe/stripe-go/v75"
)

func serveCommand(cfg *config.Config) *cobra.Command {
	var noDispatch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the outbox dispatcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			return a.serve(cmd.Context(), !noDispatch)
		},
	}
	cmd.Flags().BoolVar(&noDispatch, "no-dispatch", false, "do not deliver outbox events from this process")
	return cmd
}

func (a *app) router() *gin.Engine {
	cfg := a.cfg

	r := gin.New()
	r.MaxMultipartMemory = 64 << 20
	r.Use(gin.Recovery(), logging.RequestLogger())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key"},
		ExposeHeaders:    []string{"Content-Length", "Idempotent-Replayed"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	authCfg := authapi.Config{JWTSecret: cfg.JWTSecret, FrontendRedirect: cfg.GoogleFrontendRedirect}
	if cfg.GoogleEnabled() {
		authCfg.OAuth = authapi.GoogleOAuth(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	}

	var (
		sessions billing.SessionCreator
		prices   plans.PriceLister
	)
	if cfg.StripeSecretKey != "" {
		stripe.Key = cfg.StripeSecretKey
		sessions = billing.NewSessionClient(cfg.StripeSecretKey)
		prices = plans.NewPriceClient(cfg.StripeSecretKey)
	}

	routes.RegisterRoutes(r, routes.Handlers{
		Orders:         ordersapi.NewHandler(a.svc, a.db),
		Auth:           authapi.NewHandler(a.db, authCfg),
		Billing:        billing.NewHandler(a.svc, a.db, sessions, cfg.AppURL),
		Plans:          plans.NewHandler(a.db, prices),
		Admin:          adminapi.NewHandler(a.db),
		Users:          usersapi.NewHandler(a.db),
		Webhook:        stripewebhooks.NewHandler(a.svc, a.db, cfg.StripeWebhookSecret),
		Metrics:        a.metrics,
		JWTSecret:      cfg.JWTSecret,
		IdempotencyTTL: cfg.IdempotencyTTL,
	})
	return r
}

func (a *app) serve(parent context.Context, dispatch bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	if dispatch {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.dispatcher.Run(ctx)
		}()
	}

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           a.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
		stop()
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			serveErr = err
		}
	}
	wg.Wait()
	a.log.Info("stopped")
	return serveErr
}
