// Package server exposes the webhook and status HTTP endpoints.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"gagstock-notifier/pkg/tracker"
)

// MessageHandler processes an inbound chat message.
type MessageHandler interface {
	HandleMessage(ctx context.Context, userID, text string)
}

// Counter reports subscriber counts for the status endpoint.
type Counter interface {
	Counts() (active, vip int)
}

// Server handles HTTP requests.
type Server struct {
	bot         MessageHandler
	counter     Counter
	logger      *slog.Logger
	verifyToken string
}

// Config holds server configuration.
type Config struct {
	Bot         MessageHandler
	Counter     Counter
	Logger      *slog.Logger
	VerifyToken string
}

// New creates a new HTTP server handler.
func New(cfg *Config) *Server {
	return &Server{
		bot:         cfg.Bot,
		counter:     cfg.Counter,
		logger:      cfg.Logger,
		verifyToken: cfg.VerifyToken,
	}
}

// Router builds the HTTP routing table with the standard middleware stack.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(Recovery(s.logger))
	r.Use(RequestID)
	r.Use(Logging(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/", s.handleStatus)
	r.Get("/healthz", s.handleHealth)
	r.Get("/webhook", s.handleVerify)
	r.Post("/webhook", s.handleWebhook)

	return r
}

// HTTPServer wraps the router in an http.Server with sane timeouts.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// handleVerify answers the chat platform's webhook verification handshake.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token == s.verifyToken {
		s.logger.Info("webhook verified")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(challenge)); err != nil {
			s.logger.Error("write challenge failed", "error", err)
		}
		return
	}

	s.logger.Warn("webhook verification rejected", "mode", mode)
	w.WriteHeader(http.StatusForbidden)
}

// webhookEvent mirrors the chat platform's event envelope.
type webhookEvent struct {
	Object string `json:"object"`
	Entry  []struct {
		Messaging []struct {
			Sender struct {
				ID string `json:"id"`
			} `json:"sender"`
			Message *struct {
				Text string `json:"text"`
			} `json:"message"`
		} `json:"messaging"`
	} `json:"entry"`
}

// handleWebhook accepts inbound message events. The platform expects an
// immediate acknowledgement, so command handling runs after the response
// is written.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var event webhookEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		s.logger.Warn("dropping malformed webhook body", "error", err)
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	if event.Object != "page" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("EVENT_RECEIVED")); err != nil {
		s.logger.Error("write ack failed", "error", err)
	}

	for _, entry := range event.Entry {
		for _, msg := range entry.Messaging {
			if msg.Message == nil || msg.Message.Text == "" {
				continue
			}
			senderID, text := msg.Sender.ID, msg.Message.Text
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				s.bot.HandleMessage(ctx, senderID, text)
			}()
		}
	}
}

// statusResponse is the health payload served at the root.
type statusResponse struct {
	Status    string         `json:"status"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Features  statusFeatures `json:"features"`
}

type statusFeatures struct {
	StockTracking  bool     `json:"stock_tracking"`
	VIPSystem      bool     `json:"vip_system"`
	SpecialItems   []string `json:"special_items"`
	ActiveSessions int      `json:"active_sessions"`
	VIPUsers       int      `json:"vip_users"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	active, vip := s.counter.Counts()
	resp := statusResponse{
		Status:    "active",
		Message:   "🤖 GAG Stock Bot is running!",
		Timestamp: time.Now().UTC(),
		Features: statusFeatures{
			StockTracking:  true,
			VIPSystem:      true,
			SpecialItems:   tracker.DefaultWatchTerms,
			ActiveSessions: active,
			VIPUsers:       vip,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("write status failed", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		s.logger.Error("write health failed", "error", err)
	}
}
