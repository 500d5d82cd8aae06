package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/albaliriagomez/proyectoReusetech/internal/broker"
	"github.com/albaliriagomez/proyectoReusetech/internal/chat"
	"github.com/albaliriagomez/proyectoReusetech/internal/store"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	chat   *chat.Service
	store  store.MessageStore
	broker *broker.Broker
	redis  *redis.Client // nil when Redis is not configured
	logger zerolog.Logger

	allowedOrigins []string
}

// NewHandler creates a new Handler with the given dependencies.
func NewHandler(svc *chat.Service, st store.MessageStore, b *broker.Broker, rdb *redis.Client, logger zerolog.Logger, allowedOrigins []string) *Handler {
	return &Handler{
		chat:           svc,
		store:          st,
		broker:         b,
		redis:          rdb,
		logger:         logger,
		allowedOrigins: allowedOrigins,
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
