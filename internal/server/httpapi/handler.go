package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrijs2005/lostfound/internal/common"
	"github.com/dmitrijs2005/lostfound/internal/logging"
	"github.com/dmitrijs2005/lostfound/internal/server/filter"
	"github.com/dmitrijs2005/lostfound/internal/server/metrics"
	"github.com/dmitrijs2005/lostfound/internal/server/models"
)

const (
	loginBodyLimit  = 64 << 10
	multipartMemory = 8 << 20
)

// Options tune the router.
type Options struct {
	AllowedOrigins      []string
	RequestTimeout      time.Duration
	MaxUploadBytes      int64
	RequireAuthForItems bool
}

type Handler struct {
	auth    AuthService
	items   ItemService
	pinger  Pinger
	gather  prometheus.Gatherer
	logger  logging.Logger
	metrics *metrics.Metrics
	opts    Options
}

func New(opts Options, authSvc AuthService, itemSvc ItemService, pinger Pinger,
	gather prometheus.Gatherer, logger logging.Logger, mtr *metrics.Metrics) *Handler {
	return &Handler{
		auth:    authSvc,
		items:   itemSvc,
		pinger:  pinger,
		gather:  gather,
		logger:  logger.With("module", "http"),
		metrics: mtr,
		opts:    opts,
	}
}

// Router returns the complete HTTP handler.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(h.logger, h.metrics))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if h.opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(h.opts.RequestTimeout))
	}

	h.Register(r)
	return r
}

// Register mounts all routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.handleRoot)
	r.Get("/healthz", h.handleHealth)
	if h.gather != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.gather, promhttp.HandlerOpts{}))
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.With(LimitBody(loginBodyLimit)).Post("/google", h.handleGoogleLogin)
		r.With(RequireSession(h.auth, h.logger)).Get("/me", h.handleMe)
		r.Post("/logout", h.handleLogout)
	})

	r.Route("/api/items", func(r chi.Router) {
		if h.opts.RequireAuthForItems {
			r.Use(RequireSession(h.auth, h.logger))
		} else {
			r.Use(OptionalSession(h.auth, h.logger))
		}
		r.Get("/", h.handleListItems)
		r.With(LimitBody(h.opts.MaxUploadBytes)).Post("/", h.handleSubmitItem)
	})
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "Lost & Found API is running")
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.pinger.PingContext(r.Context()); err != nil {
		h.logger.Warn(r.Context(), "health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type googleLoginRequest struct {
	Credential string `json:"credential"`
}

func (h *Handler) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetReqID(ctx)

	var req googleLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Credential == "" {
		h.logger.Warn(ctx, "invalid login request", "error", err, "request_id", requestID)
		writeError(w, http.StatusBadRequest, "Missing credential")
		return
	}

	claim, cookie, err := h.auth.Login(ctx, req.Credential)
	if err != nil {
		h.logger.Warn(ctx, "google login failed", "error", err, "request_id", requestID)
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	http.SetCookie(w, cookie)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": claim})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	session := SessionFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"user": session.Claim})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.auth.Logout(r.Context(), sessionCookieValue(r)))
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) handleListItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q, err := filter.FromValues(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := h.items.List(ctx, q)
	if err != nil {
		h.logger.Error(ctx, "failed to list items", "error", err, "request_id", middleware.GetReqID(ctx))
		writeError(w, http.StatusInternalServerError, "Failed to fetch items")
		return
	}

	if items == nil {
		items = []*models.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleSubmitItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetReqID(ctx)

	var submittedBy string
	if s := SessionFromContext(ctx); s != nil {
		submittedBy = s.Claim.Email
	}

	if h.opts.MaxUploadBytes > 0 && r.ContentLength > h.opts.MaxUploadBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"message": "Upload too large"})
		return
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"message": "Upload too large"})
			return
		}
		h.logger.Warn(ctx, "invalid submission form", "error", err, "request_id", requestID)
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid form data"})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	draft := models.ItemDraft{
		Title:         r.FormValue("title"),
		Description:   r.FormValue("description"),
		Type:          models.ItemType(r.FormValue("type")),
		Location:      r.FormValue("location"),
		ContactEmail:  r.FormValue("contactEmail"),
		ContactPhone:  r.FormValue("contactPhone"),
		HostelAddress: r.FormValue("hostelAddress"),
	}

	image, err := readUpload(r, "image")
	if err != nil {
		h.logger.Warn(ctx, "unreadable image part", "error", err, "request_id", requestID)
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid form data"})
		return
	}

	item, err := h.items.Submit(ctx, submittedBy, draft, image)
	if err != nil {
		if verr, ok := common.AsValidationError(err); ok {
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Validation failed", "errors": verr})
			return
		}
		h.logger.Error(ctx, "item submission failed",
			"submitted_by", submittedBy,
			"error", err,
			"request_id", requestID,
		)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"message": "Something went wrong",
			"error":   publicReason(err),
		})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"message": "Item submitted successfully", "item": item})
}

// readUpload returns nil when the form has no such file.
func readUpload(r *http.Request, field string) (*models.Upload, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return &models.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func publicReason(err error) string {
	switch {
	case errors.Is(err, common.ErrStoreUnavailable):
		return "Image upload failed"
	case errors.Is(err, common.ErrPersistenceUnavailable):
		return "Could not save item"
	default:
		return "Internal error"
	}
}
