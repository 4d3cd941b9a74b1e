package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/coopcata/plataforma/internal/associacao"
	"github.com/coopcata/plataforma/internal/catador"
	"github.com/coopcata/plataforma/internal/config"
	"github.com/coopcata/plataforma/internal/db"
	httpmiddleware "github.com/coopcata/plataforma/internal/http/middleware"
	"github.com/coopcata/plataforma/internal/mail"
	"github.com/coopcata/plataforma/internal/role"
	"github.com/coopcata/plataforma/internal/user"
)

type Handler struct {
	cfg           *config.Config
	pool          *pgxpool.Pool
	redis         *redis.Client
	publicLimiter *httpmiddleware.RateLimiter
}

// NewRouter devolve roteador configurado.
func NewRouter(cfg *config.Config, pool *pgxpool.Pool, redisClient *redis.Client) (http.Handler, error) {
	h := &Handler{
		cfg:           cfg,
		pool:          pool,
		redis:         redisClient,
		publicLimiter: httpmiddleware.NewRateLimiter(cfg.RateLimitPublic.RequestsPerSecond, cfg.RateLimitPublic.Burst),
	}

	runTx := func(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
		return db.WithTx(ctx, pool, fn)
	}

	userRepo := user.NewRepository(pool)
	userService := user.NewService(userRepo)
	roleRepo := role.NewRepository(pool)
	roleService := role.NewService(roleRepo)

	var mailer mail.Mailer
	if m := mail.NewWebhookMailer(cfg.MailWebhookURL, cfg.MailFrom); m != nil {
		mailer = m
	}

	associacaoRepo := associacao.NewRepository(pool)
	catadorRepo := catador.NewRepository(pool)

	associacaoService := associacao.NewService(associacaoRepo, userService, roleService, catadorRepo, redisClient, runTx, cfg.SenhaTamanho)
	catadorService := catador.NewService(catadorRepo, userService, roleService, associacaoService, mailer, redisClient, runTx, cfg.SenhaTamanho)

	associacaoHandler := associacao.NewHandler(associacaoService)
	catadorHandler := catador.NewHandler(catadorService)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(cfg.AllowOrigins))

	r.Group(func(public chi.Router) {
		public.Use(httpmiddleware.IPRateLimit(h.publicLimiter))

		public.Get("/health", h.Health)
		public.Get("/ready", h.Ready)

		associacaoHandler.RegisterRoutes(public)
		catadorHandler.RegisterRoutes(public)
	})

	return r, nil
}

// Health responde imediatamente: o processo está de pé.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready verifica as dependências externas antes de aceitar tráfego.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.pool.Ping(ctx); err != nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "banco indisponível", nil)
		return
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "redis indisponível", nil)
			return
		}
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
