package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	chatservice "mboa/contexts/community-experience/chat-service"
	presenceservice "mboa/contexts/community-experience/presence-service"
	statusservice "mboa/contexts/community-experience/status-service"
	challengeservice "mboa/contexts/lottery-games/challenge-service"
	tombolaservice "mboa/contexts/lottery-games/tombola-service"
	"mboa/internal/platform/realtime"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "mboa/internal/platform/httpserver/docs"
)

type Server struct {
	mux           *http.ServeMux
	httpServer    *http.Server
	logger        *slog.Logger
	addr          string
	jwtSecret     string
	serviceSecret string
	chat          chatservice.Module
	statuses      statusservice.Module
	presence      presenceservice.Module
	tombola       tombolaservice.Module
	challenges    challengeservice.Module
	gateway       *realtime.Gateway
}

func New(
	chatModule chatservice.Module,
	statusModule statusservice.Module,
	presenceModule presenceservice.Module,
	tombolaModule tombolaservice.Module,
	challengeModule challengeservice.Module,
	bus *realtime.Bus,
	jwtSecret string,
	serviceSecret string,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:           http.NewServeMux(),
		logger:        logger,
		addr:          addr,
		jwtSecret:     jwtSecret,
		serviceSecret: serviceSecret,
		chat:          chatModule,
		statuses:      statusModule,
		presence:      presenceModule,
		tombola:       tombolaModule,
		challenges:    challengeModule,
	}
	s.gateway = &realtime.Gateway{
		Bus:      bus,
		Auth:     s,
		Chat:     chatModule.Handler,
		Statuses: statusModule.Handler,
		Presence: presenceModule.Presence,
		Logger:   logger,
	}
	s.httpServer = &http.Server{Addr: addr, Handler: s.mux}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests. Websocket sessions observe the
// listener closing and tear themselves down through the gateway.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /ws", s.gateway.Handle)

	s.registerChatRoutes()
	s.registerStatusRoutes()
	s.registerTombolaRoutes()
	s.registerChallengeRoutes()
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "ok"})
}

type errorEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorEnvelope{Success: false, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// parsePagination reads the optional page and limit query parameters.
// Absent parameters come back as zero; the transport layer applies the
// per-surface defaults.
func parsePagination(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	query := r.URL.Query()
	page, ok := parseQueryInt(w, query, "page")
	if !ok {
		return 0, 0, false
	}
	limit, ok := parseQueryInt(w, query, "limit")
	if !ok {
		return 0, 0, false
	}
	return page, limit, true
}

func parseQueryInt(w http.ResponseWriter, query url.Values, key string) (int, bool) {
	raw := strings.TrimSpace(query.Get(key))
	if raw == "" {
		return 0, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		writeError(w, http.StatusBadRequest, key+" must be a non-negative integer")
		return 0, false
	}
	return value, true
}
