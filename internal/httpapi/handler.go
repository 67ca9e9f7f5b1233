// Package httpapi wires the REST surface: route registration, request
// decoding, and translation of service errors into the JSON envelope.
package httpapi

import (
	"net/http"
	"runtime/debug"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/redvault/backend/internal/errors"
	"github.com/redvault/backend/internal/httputil"
	"github.com/redvault/backend/internal/metrics"
	"github.com/redvault/backend/internal/middleware"
	"github.com/redvault/backend/internal/services/auth"
	"github.com/redvault/backend/internal/services/ledger"
)

const serviceName = "redvault"

// Handler holds the services behind the REST surface.
type Handler struct {
	auth   *auth.Service
	ledger *ledger.Service
	log    zerolog.Logger
}

// New creates a Handler over the given services.
func New(authService *auth.Service, ledgerService *ledger.Service, log zerolog.Logger) *Handler {
	return &Handler{
		auth:   authService,
		ledger: ledgerService,
		log:    log.With().Str("component", "httpapi").Logger(),
	}
}

// RouterConfig carries the middleware wiring for NewRouter.
type RouterConfig struct {
	Auth        *middleware.AuthMiddleware
	CORS        *middleware.CORSMiddleware
	RateLimiter *middleware.RateLimiter
	Log         zerolog.Logger
}

// NewRouter assembles the full route table with its middleware chain.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.Metrics)
	r.Use(middleware.RequestLogger(cfg.Log))
	r.Use(cfg.CORS.Handler)
	r.Use(recoverPanics(cfg.Log))

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, errors.NotFound("Not found"))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, httputil.ErrorResponse{Error: "Method not allowed"})
	})

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	// Unauthenticated auth endpoints, throttled per client.
	authRouter := r.PathPrefix("/api/auth").Subrouter()
	authRouter.Use(cfg.RateLimiter.Handler)
	authRouter.HandleFunc("/register", h.Register).Methods(http.MethodPost)
	authRouter.HandleFunc("/login", h.Login).Methods(http.MethodPost)

	// Admin login is registered before the guarded admin subrouter so
	// the auth middleware never sees it.
	r.Handle("/api/admin/login", cfg.RateLimiter.Handler(http.HandlerFunc(h.AdminLogin))).Methods(http.MethodPost)

	userRouter := r.PathPrefix("/api/user").Subrouter()
	userRouter.Use(cfg.Auth.RequireAuth)
	userRouter.HandleFunc("/me", h.Me).Methods(http.MethodGet)
	userRouter.HandleFunc("/plan", h.SetPlan).Methods(http.MethodPatch)
	userRouter.HandleFunc("/deposit", h.SelfDeposit).Methods(http.MethodPost)
	userRouter.HandleFunc("/deposit-request", h.RequestDeposit).Methods(http.MethodPost)
	userRouter.HandleFunc("/transactions", h.Transactions).Methods(http.MethodGet)

	adminRouter := r.PathPrefix("/api/admin").Subrouter()
	adminRouter.Use(cfg.Auth.RequireAuth, cfg.Auth.RequireAdmin)
	adminRouter.HandleFunc("/users", h.ListUsers).Methods(http.MethodGet)
	adminRouter.HandleFunc("/users/{id}", h.AdjustUser).Methods(http.MethodPatch)
	adminRouter.HandleFunc("/deposits/pending", h.PendingDeposits).Methods(http.MethodGet)
	adminRouter.HandleFunc("/deposits/{txId}/approve", h.ApproveDeposit).Methods(http.MethodPost)

	return r
}

func recoverPanics(log zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error().
						Interface("panic", rec).
						Bytes("stack", debug.Stack()).
						Str("path", r.URL.Path).
						Msg("handler panicked")
					httputil.WriteJSON(w, http.StatusInternalServerError,
						httputil.ErrorResponse{Error: "Internal server error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// writeError logs internal failures and renders the error envelope.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if serviceErr := errors.GetServiceError(err); serviceErr != nil && serviceErr.HTTPStatus >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	httputil.WriteError(w, err)
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "service": serviceName})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in auth.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	session, err := h.auth.Register(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, session)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in auth.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	session, err := h.auth.Login(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, session)
}

func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var in auth.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	session, err := h.auth.AdminLogin(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, session)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.ledger.GetUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (h *Handler) SetPlan(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Plan string `json:"plan"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	u, err := h.ledger.SetPlan(r.Context(), middleware.GetUserID(r.Context()), in.Plan)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"user": u})
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *Handler) SelfDeposit(w http.ResponseWriter, r *http.Request) {
	var in amountRequest
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	result, err := h.ledger.SelfDeposit(r.Context(), middleware.GetUserID(r.Context()), in.Amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"user":        result.User,
		"transaction": result.Transaction,
	})
}

func (h *Handler) RequestDeposit(w http.ResponseWriter, r *http.Request) {
	var in amountRequest
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	tx, err := h.ledger.RequestDeposit(r.Context(), middleware.GetUserID(r.Context()), in.Amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"transaction": tx})
}

func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	history, err := h.ledger.ListTransactions(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"transactions": history})
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.ledger.ListUsers(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *Handler) AdjustUser(w http.ResponseWriter, r *http.Request) {
	var in ledger.AdjustInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	u, err := h.ledger.AdjustUser(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (h *Handler) PendingDeposits(w http.ResponseWriter, r *http.Request) {
	deposits, err := h.ledger.ListPending(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"deposits": deposits})
}

func (h *Handler) ApproveDeposit(w http.ResponseWriter, r *http.Request) {
	result, err := h.ledger.ApproveDeposit(r.Context(), mux.Vars(r)["txId"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"transaction": result.Transaction,
		"user":        result.User,
	})
}
