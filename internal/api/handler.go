package api

import (
	"github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog"

	"chemviz-backend/internal/logging"
	"chemviz-backend/internal/service"
	"chemviz-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	svc            *service.Service
	store          store.Store
	webpush        *webpush.Options
	maxUploadBytes int64
	log            zerolog.Logger
}

// NewHandler creates a new API handler. A nil webpushOptions disables the
// VAPID key endpoint.
func NewHandler(svc *service.Service, s store.Store, webpushOptions *webpush.Options, maxUploadBytes int64) *Handler {
	return &Handler{
		svc:            svc,
		store:          s,
		webpush:        webpushOptions,
		maxUploadBytes: maxUploadBytes,
		log:            logging.With("api"),
	}
}
