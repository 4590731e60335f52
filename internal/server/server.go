package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/perviz24/innovati-x/internal/augment"
	"github.com/perviz24/innovati-x/internal/config"
	"github.com/perviz24/innovati-x/internal/generation"
	"github.com/perviz24/innovati-x/internal/llm"
	"github.com/perviz24/innovati-x/internal/pipeline"
	"github.com/perviz24/innovati-x/internal/server/middleware"
	"github.com/perviz24/innovati-x/internal/server/ratelimit"
	"github.com/perviz24/innovati-x/internal/store"
)

// AnalysisRunner starts an analysis run. Satisfied by *pipeline.Runner.
type AnalysisRunner interface {
	Run(ctx context.Context, challengeID, ownerID uuid.UUID, description string) error
}

// Server is the HTTP API.
type Server struct {
	httpServer  *http.Server
	challenges  store.CheckpointStore
	users       store.UserStore
	runner      AnalysisRunner
	validator   *validator.Validate
	rateLimiter *ratelimit.Limiter
	authHandler *AuthHandler

	// closers run during shutdown, after the listener has drained.
	closers []func()
}

// New wires the full server from configuration: database, model client,
// augmentor, pipeline runner, and authentication services.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	if err := cfg.ValidateServer(); err != nil {
		return nil, err
	}

	pg, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pg.Migrate(ctx); err != nil {
		pg.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	llmConfig := llm.DefaultConfig()
	if cfg.StandardModel != "" {
		llmConfig = llmConfig.WithModel(llm.TierStandard, cfg.StandardModel)
	}
	if cfg.AdvancedModel != "" {
		llmConfig = llmConfig.WithModel(llm.TierAdvanced, cfg.AdvancedModel)
	}
	client, err := llm.NewGeminiClient(ctx, llmConfig, cfg.GeminiAPIKey)
	if err != nil {
		pg.Close()
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}

	runner := pipeline.NewRunner(
		pg,
		generation.NewAdapter(client),
		augment.FromEnv(ctx),
		pipeline.WithRunBudget(cfg.RunBudget()),
		pipeline.WithMaxConcurrentRuns(int64(cfg.MaxConcurrentRuns)),
	)

	passwordConfig, err := config.NewPasswordConfig()
	if err != nil {
		pg.Close()
		return nil, fmt.Errorf("failed to create password config: %w", err)
	}
	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		pg.Close()
		return nil, fmt.Errorf("failed to create JWT config: %w", err)
	}

	s := newServer(cfg.ListenAddr, pg, pg, runner, NewJWTService(jwtConfig), passwordConfig)
	s.closers = append(s.closers, pg.Close, func() {
		if err := client.Close(); err != nil {
			log.Printf("closing model client: %v", err)
		}
	})
	return s, nil
}

// newServer assembles routes and middleware around injected dependencies.
// Tests call it directly with fakes.
func newServer(addr string, challenges store.CheckpointStore, users store.UserStore, runner AnalysisRunner, jwtService *JWTService, passwordConfig *config.PasswordConfig) *Server {
	s := &Server{
		challenges:  challenges,
		users:       users,
		runner:      runner,
		validator:   validator.New(),
		rateLimiter: ratelimit.NewLimiter(ratelimit.DefaultRules()),
	}
	s.authHandler = NewAuthHandler(NewUserService(users, passwordConfig), jwtService)

	requireAuth := middleware.Auth(jwtService.AsTokenValidator())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /auth/register", s.authHandler.Register)
	mux.HandleFunc("POST /auth/login", s.authHandler.Login)

	mux.Handle("POST /challenges", requireAuth(http.HandlerFunc(s.handleCreateChallenge)))
	mux.Handle("GET /challenges", requireAuth(http.HandlerFunc(s.handleListChallenges)))
	mux.Handle("GET /challenges/{id}", requireAuth(http.HandlerFunc(s.handleGetChallenge)))
	mux.Handle("DELETE /challenges/{id}", requireAuth(http.HandlerFunc(s.handleDeleteChallenge)))
	mux.Handle("POST /challenges/{id}/analyze", requireAuth(http.HandlerFunc(s.handleAnalyze)))

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.withRateLimit(s.withLogging(s.withCORS(mux))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler exposes the composed handler chain for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start listens for requests until an interrupt or termination signal, then
// shuts down gracefully.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.rateLimiter.Stop()
	for _, closeFn := range s.closers {
		closeFn()
	}
	log.Println("Server stopped")
	return nil
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// withCORS adds CORS headers.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit rejects requests that exceed the client's budget.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(clientID(r), r.URL.Path, r.Method)
		if !allowed {
			if info.RetryAfter > 0 {
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds())))
			}
			s.jsonResponse(w, http.StatusTooManyRequests, map[string]any{
				"error": "rate_limit_exceeded",
				"limit": info.Limit,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s %s completed in %v", r.Method, r.URL.Path, r.RemoteAddr, time.Since(start))
	})
}

// clientID identifies the caller for rate limiting, by IP address.
func clientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// jsonResponse writes a JSON response.
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response.
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
