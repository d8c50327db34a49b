// internal/engagement/handler.go
package engagement

import (
	"context"
	"encoding/json"
	"net/http"

	"apigateway/internal/apierr"
	"apigateway/internal/auth"
	"apigateway/internal/contextutil"
	"apigateway/internal/contract"
	"apigateway/internal/httputils"
	"apigateway/internal/observability/logging"
	"apigateway/internal/proxy/forwarder"
	"apigateway/internal/proxy/router"
)

const (
	// ServiceName is the downstream service resolved through configuration
	ServiceName = "engagement"
	// EventsPath is the downstream endpoint receiving engagement events
	EventsPath = "/internal/events"
	// DefaultBodyLimit applies when no limit is configured
	DefaultBodyLimit int64 = 8 * 1024
)

// AllowedUserTypes may record engagement events
var AllowedUserTypes = []string{"user", "admin"}

// Forwarder sends a request to a downstream service
type Forwarder interface {
	Forward(ctx context.Context, req forwarder.Request) ([]byte, error)
}

// Handler serves the engagement routes
type Handler struct {
	forwarder Forwarder
	bodyLimit int64
	logger    *logging.Logger
}

// NewHandler creates an engagement handler. A non-positive bodyLimit uses DefaultBodyLimit.
func NewHandler(fwd Forwarder, bodyLimit int64, logger *logging.Logger) *Handler {
	if bodyLimit <= 0 {
		bodyLimit = DefaultBodyLimit
	}
	return &Handler{
		forwarder: fwd,
		bodyLimit: bodyLimit,
		logger:    logger.WithModule("engagement"),
	}
}

// Routes returns the engagement routes with their access policies
func (h *Handler) Routes() []router.Route {
	return []router.Route{
		{
			Name:    "engagement.like",
			Method:  http.MethodPost,
			Path:    "/like",
			Policy:  router.Policy{AllowedUserTypes: AllowedUserTypes},
			Handler: http.HandlerFunc(h.Like),
		},
	}
}

// Like validates an engagement event, forwards it to the engagement service
// and returns the validated counters
func (h *Handler) Like(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContextOr(ctx, h.logger)

	body := http.MaxBytesReader(w, r.Body, h.bodyLimit)
	event := EventRequest{Action: DefaultAction}
	if err := contract.DecodeRequest(body, &event); err != nil {
		httputils.WriteError(w, r, h.logger, err)
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		httputils.WriteError(w, r, h.logger, apierr.Internal(err))
		return
	}

	identity := auth.IdentityFromContext(ctx)
	raw, err := h.forwarder.Forward(ctx, forwarder.Request{
		Service:       ServiceName,
		Path:          EventsPath,
		Method:        http.MethodPost,
		Body:          payload,
		CorrelationID: contextutil.GetCorrelationID(ctx),
		Identity:      identity,
	})
	if err != nil {
		httputils.WriteError(w, r, h.logger, err)
		return
	}

	var counters EventResponse
	if err := contract.DecodeResponse(raw, &counters); err != nil {
		httputils.WriteError(w, r, h.logger, err)
		return
	}

	subject := ""
	if identity != nil {
		subject = identity.Subject
	}
	logger.Info("Engagement event forwarded",
		"video_id", event.VideoID,
		"action", event.Action,
		"subject", subject,
	)

	if err := httputils.WriteJSON(w, http.StatusOK, counters); err != nil {
		logger.Debug("Failed to write response", logging.Err(err))
	}
}
