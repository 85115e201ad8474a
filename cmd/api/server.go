package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/georgemunganga/bijoux-shop/internal/modules/auth"
	"github.com/georgemunganga/bijoux-shop/internal/modules/cart"
	"github.com/georgemunganga/bijoux-shop/internal/modules/catalog"
	"github.com/georgemunganga/bijoux-shop/internal/modules/category"
	"github.com/georgemunganga/bijoux-shop/internal/modules/dashboard"
	"github.com/georgemunganga/bijoux-shop/internal/modules/inventory"
	"github.com/georgemunganga/bijoux-shop/internal/modules/marketing"
	"github.com/georgemunganga/bijoux-shop/internal/modules/media"
	"github.com/georgemunganga/bijoux-shop/internal/modules/order"
	"github.com/georgemunganga/bijoux-shop/internal/modules/promo"
	"github.com/georgemunganga/bijoux-shop/internal/modules/user"
	"github.com/georgemunganga/bijoux-shop/internal/platform/config"
	"github.com/georgemunganga/bijoux-shop/internal/platform/logging"
	"github.com/georgemunganga/bijoux-shop/internal/platform/render"
	"github.com/georgemunganga/bijoux-shop/internal/platform/session"
)

// app holds the wired modules and the resources to release on shutdown.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	sessions *session.Manager
	authSvc  auth.Service
	uploads  http.Handler
	closers  []func() error

	catalog   *catalog.Handler
	category  *category.Handler
	inventory *inventory.Handler
	promo     *promo.Handler
	cart      *cart.Handler
	auth      *auth.Handler
	user      *user.Handler
	order     *order.Handler
	marketing *marketing.Handler
	media     *media.Handler
	dashboard *dashboard.Handler
}

func newApp(ctx context.Context, cfg *config.Config, db *sql.DB, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	views, err := render.New(cfg.Shop.Name)
	if err != nil {
		return nil, fmt.Errorf("templates: %w", err)
	}
	a.sessions = session.NewManager(cfg.Auth.SessionHashKey, cfg.Auth.SessionBlockKey, cfg.Server.Secure)

	// ── Identity ────────────────────────────────────────────
	userSvc := user.NewService(user.NewPostgresRepository(db))
	if cfg.Auth.BootstrapAdmin != "" {
		if _, err := userSvc.EnsureAdmin(ctx, cfg.Auth.BootstrapAdmin, cfg.Auth.BootstrapAdminPw); err != nil {
			return nil, fmt.Errorf("bootstrap admin: %w", err)
		}
		logger.Info("admin account ready", zap.String("email", cfg.Auth.BootstrapAdmin))
	}
	a.authSvc = auth.NewService(userSvc, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	a.user = user.NewHandler(userSvc)

	// ── Catalog & stock ─────────────────────────────────────
	categorySvc := category.NewService(category.NewPostgresRepository(db))
	catalogSvc := catalog.NewService(catalog.NewPostgresRepository(db), catalog.Settings{
		Currency: cfg.Shop.Currency,
		PerPage:  cfg.Shop.PerPage,
		Badges:   cfg.Shop.Badges,
	})
	inventoryRepo := inventory.NewPostgresRepository(db)
	inventorySvc := inventory.NewService(inventoryRepo, cfg.Shop.Badges.LowStockThreshold)
	a.category = category.NewHandler(categorySvc, views)
	a.catalog = catalog.NewHandler(catalogSvc, categorySvc, views)
	a.inventory = inventory.NewHandler(inventorySvc, views)

	// ── Cart, promo codes & orders ──────────────────────────
	promoRepo := promo.NewPostgresRepository(db)
	promoSvc := promo.NewService(promoRepo)
	a.promo = promo.NewHandler(promoSvc, views)

	guests, err := a.guestStore(ctx)
	if err != nil {
		return nil, err
	}
	cartRepo := cart.NewPostgresRepository(db)
	cartSvc := cart.NewService(cartRepo, guests, catalogSvc, promoSvc, cfg.Shop.Shipping, cfg.Shop.Currency)
	a.cart = cart.NewHandler(cartSvc, views)
	a.auth = auth.NewHandler(a.authSvc, cartSvc, a.sessions, views, cfg.Auth.TokenTTL, cfg.Server.Secure)

	orderSvc := order.NewService(order.NewPostgresRepository(db), cartSvc, inventoryRepo, promoRepo, cartRepo,
		order.WithPerPage(cfg.Shop.PerPage))
	a.order = order.NewHandler(orderSvc, cartSvc, views)

	// ── Email marketing ─────────────────────────────────────
	mailer, err := a.mailer()
	if err != nil {
		return nil, err
	}
	emails := marketing.NewEmailRenderer(cfg.Shop.Name, cfg.Server.BaseURL)
	marketingSvc := marketing.NewService(marketing.NewPostgresRepository(db), emails,
		marketing.NewSender(mailer, emails, cfg.Mail.Workers))
	a.marketing = marketing.NewHandler(marketingSvc, views)

	// ── Images ──────────────────────────────────────────────
	store, err := a.imageStore(ctx)
	if err != nil {
		return nil, err
	}
	mediaSvc := media.NewService(media.NewPostgresRepository(db), store, catalogSvc, categorySvc, cfg.Media.MaxUploadBytes)
	a.media = media.NewHandler(mediaSvc, catalogSvc, categorySvc, views)

	a.dashboard = dashboard.NewHandler(orderSvc, inventorySvc, marketingSvc, cfg.Shop.Badges.LowStockThreshold, views)
	return a, nil
}

// guestStore keeps guest carts in Redis when configured, in memory otherwise.
func (a *app) guestStore(ctx context.Context) (cart.GuestStore, error) {
	ttl := a.cfg.Auth.GuestCartTTL
	if a.cfg.Redis.Addr == "" {
		mem := cart.NewMemoryGuestStore(ttl)
		go mem.RunSweeper(ctx, 10*time.Minute)
		a.logger.Info("guest carts kept in memory")
		return mem, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	a.closers = append(a.closers, rdb.Close)
	a.logger.Info("guest carts kept in redis", zap.String("addr", a.cfg.Redis.Addr))
	return cart.NewRedisGuestStore(rdb, ttl), nil
}

// mailer sends through SMTP when a host is configured and logs otherwise.
func (a *app) mailer() (marketing.Mailer, error) {
	m := a.cfg.Mail
	if m.SMTPHost == "" {
		a.logger.Warn("SMTP not configured, campaign emails are only logged")
		return marketing.NewLogMailer(a.logger), nil
	}
	return marketing.NewSMTPMailer(marketing.SMTPConfig{
		Host:     m.SMTPHost,
		Port:     m.SMTPPort,
		Username: m.Username,
		Password: m.Password,
		From:     m.From,
	})
}

// imageStore uses the GCS bucket when configured, the upload directory otherwise.
func (a *app) imageStore(ctx context.Context) (media.Store, error) {
	m := a.cfg.Media
	if m.GCSBucket != "" {
		s, err := media.NewGCSStore(ctx, m.GCSBucket, m.GCSCredentials)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	}
	s, err := media.NewLocalStore(m.Dir, m.PublicBaseURL)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(m.PublicBaseURL, "/") + "/"
	if strings.HasPrefix(prefix, "/") {
		a.uploads = http.StripPrefix(prefix, http.FileServer(http.Dir(m.Dir)))
	}
	return s, nil
}

// Router builds the HTTP routes. Admin pages live under /admin.
func (a *app) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(a.logger))
	r.Use(middleware.Recoverer)

	r.Handle("/static/*", http.StripPrefix("/static/", render.Static()))
	if a.uploads != nil {
		r.Handle(strings.TrimRight(a.cfg.Media.PublicBaseURL, "/")+"/*", a.uploads)
	}
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	r.Group(func(r chi.Router) {
		r.Use(a.sessions.Middleware)
		r.Use(auth.Authenticate(a.authSvc))
		r.Use(session.CSRF(a.cfg.Media.MaxUploadBytes + 1<<20))

		a.catalog.RegisterRoutes(r)
		a.category.RegisterRoutes(r)
		a.promo.RegisterRoutes(r)
		a.cart.RegisterRoutes(r)
		a.auth.RegisterRoutes(r)
		a.order.RegisterRoutes(r)
		a.marketing.RegisterRoutes(r)
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireUser)
			a.user.RegisterRoutes(r)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			a.dashboard.RegisterAdminRoutes(r)
			a.catalog.RegisterAdminRoutes(r)
			a.category.RegisterAdminRoutes(r)
			a.inventory.RegisterAdminRoutes(r)
			a.promo.RegisterAdminRoutes(r)
			a.order.RegisterAdminRoutes(r)
			a.marketing.RegisterAdminRoutes(r)
			a.media.RegisterAdminRoutes(r)
		})
	})
	return r
}

// Close releases Redis and storage clients.
func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Warn("close", zap.Error(err))
		}
	}
}
