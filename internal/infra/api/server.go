package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"sms-relay/internal/config"
	"sms-relay/internal/domain"
	"sms-relay/internal/domain/model"
	"sms-relay/internal/infra/logging"
	"sms-relay/internal/infra/metrics"
	"sms-relay/internal/usecase"
)

const (
	serviceName    = "sms-relay"
	serviceVersion = "1.0.0"

	maxBodyBytes    = 16 << 10
	defaultSendsLim = 50
	maxSendsLim     = 500
)

// Server exposes the send flow over HTTP.
type Server struct {
	sendUC usecase.SendUseCase
	auth   *AuthManager // nil leaves every route open
	cfg    *config.Config
	logger *zerolog.Logger
}

func NewServer(sendUC usecase.SendUseCase, auth *AuthManager, cfg *config.Config, logger *zerolog.Logger) *Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Server{sendUC: sendUC, auth: auth, cfg: cfg, logger: logger}
}

type sendRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

type sendResponse struct {
	OK         bool   `json:"ok"`
	ID         string `json:"id"`
	To         string `json:"to"`
	MessageLen int    `json:"message_len"`
	Used       string `json:"used"`
	Tried      int    `json:"tried"`
}

type sendLogItem struct {
	ID          string `json:"id"`
	Provider    string `json:"provider"`
	Destination string `json:"to"`
	MessageLen  int    `json:"message_len"`
	Used        string `json:"used,omitempty"`
	Tried       int    `json:"tried"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
	DurationMS  int64  `json:"duration_ms"`
	CreatedAt   string `json:"created_at"`
}

// Handler builds the full middleware stack and routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(Metrics())

	r.Get("/health", s.health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		if s.auth != nil {
			r.Use(RequireAuth(s.auth))
		}
		r.Post("/send", s.send)
		r.Get("/capabilities", s.capabilities)
		r.Get("/sends", s.sends)
	})

	h := Chain(r,
		TraceID(),
		RequestLog(s.logger),
		Recover(s.logger),
		CORS(s.cfg.CORS),
		Timeout(s.cfg.HTTP.RequestTimeout),
	)
	return otelhttp.NewHandler(h, serviceName)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"service": serviceName,
		"version": serviceVersion,
	})
}

func (s *Server) send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.To == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "'to' and 'message' are required")
		return
	}

	res, err := s.sendUC.Send(r.Context(), req.To, req.Message)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sendResponse{
		OK:         true,
		ID:         res.ID,
		To:         res.To,
		MessageLen: res.MessageLen,
		Used:       res.Used,
		Tried:      res.Tried,
	})
}

func (s *Server) capabilities(w http.ResponseWriter, r *http.Request) {
	caps, err := s.sendUC.Capabilities(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": caps})
}

func (s *Server) sends(w http.ResponseWriter, r *http.Request) {
	limit := defaultSendsLim
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxSendsLim)
	}
	recs, err := s.sendUC.RecentSends(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]sendLogItem, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toSendLogItem(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

func toSendLogItem(rec *model.SendRecord) sendLogItem {
	return sendLogItem{
		ID:          rec.ID,
		Provider:    rec.Provider,
		Destination: rec.Destination,
		MessageLen:  rec.MessageLen,
		Used:        rec.Used,
		Tried:       rec.Tried,
		Status:      string(rec.Status),
		Error:       rec.Error,
		DurationMS:  rec.Duration.Milliseconds(),
		CreatedAt:   rec.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		l := logging.With(r.Context(), s.logger)
		l.Error().Err(err).Int("status", code).Msg("request failed")
	}
	writeError(w, code, err.Error())
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidPhone), errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateSend):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrConfiguration):
		return http.StatusInternalServerError
	case errors.Is(err, domain.ErrUpstream), errors.Is(err, domain.ErrNoCandidates):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
