package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/mailmind/backend/internal/ai"
	"github.com/mailmind/backend/internal/api"
	"github.com/mailmind/backend/internal/auth"
	"github.com/mailmind/backend/internal/config"
	"github.com/mailmind/backend/internal/mailbox"
	"github.com/mailmind/backend/internal/models"
	"github.com/mailmind/backend/internal/provider"
	"github.com/mailmind/backend/internal/session"
	"github.com/mailmind/backend/internal/store"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	pool, err := store.NewConnection(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.CloseConnection(pool)

	log.Printf("Successfully connected to database")

	server := NewServer(cfg, store.NewPostgresStore(pool), newSessionStore(cfg))

	address := ":" + cfg.Port
	log.Printf("MailMind backend server starting on %s (environment: %s)", address, cfg.Environment)

	if err := http.ListenAndServe(address, server); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

// newSessionStore uses Redis when an address is configured and falls back to
// process-local sessions otherwise. The fallback loses sessions on restart;
// bearer tokens keep working either way.
func newSessionStore(cfg *config.Config) session.Store {
	if cfg.RedisAddr == "" {
		log.Printf("No Redis address configured, using in-memory sessions")
		return session.NewMemoryStore()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	return session.NewRedisStore(client)
}

// NewServer creates and returns the HTTP handler for the MailMind API server.
func NewServer(cfg *config.Config, identities store.Store, sessions session.Store) http.Handler {
	flow := auth.NewOAuthFlow(cfg)
	authenticator := auth.NewAuthenticator(identities, sessions, cfg.JWTSecret)

	googleOAuth, _ := flow.Config(models.ProviderGoogle)
	mailboxService := mailbox.NewService(
		provider.NewGmailAdapter(googleOAuth),
		provider.NewGraphAdapter(),
	)

	sessionTTL := time.Duration(cfg.SessionTTLHrs) * time.Hour
	secureCookies := cfg.Environment == "production"

	authHandler := api.NewAuthHandler(flow, identities, sessions, cfg.JWTSecret, cfg.FrontendURL, sessionTTL, secureCookies)
	emailsHandler := api.NewEmailsHandler(mailboxService)
	aiHandler := api.NewAIHandler(ai.NewClientWithBaseURL(cfg.GroqAPIKey, cfg.GroqBaseURL))

	mux := http.NewServeMux()

	mux.HandleFunc("/", handleRoot)

	mux.Handle("/api/auth/google", authHandler.Login(models.ProviderGoogle))
	mux.Handle("/api/auth/google/callback", authHandler.Callback(models.ProviderGoogle))
	mux.Handle("/api/auth/microsoft", authHandler.Login(models.ProviderMicrosoft))
	mux.Handle("/api/auth/microsoft/callback", authHandler.Callback(models.ProviderMicrosoft))
	mux.Handle("/api/auth/me", authenticator.RequireAuth(http.HandlerFunc(authHandler.Me)))
	mux.Handle("/api/auth/logout", http.HandlerFunc(authHandler.Logout))

	mux.Handle("/api/emails/gmail", authenticator.RequireAuth(emailsHandler.GetEmails(models.ProviderGoogle)))
	mux.Handle("/api/emails/outlook", authenticator.RequireAuth(emailsHandler.GetEmails(models.ProviderMicrosoft)))

	mux.Handle("/api/ai/models", authenticator.RequireAuth(http.HandlerFunc(aiHandler.GetModels)))
	mux.Handle("/api/ai/query", authenticator.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		aiHandler.Query(w, r)
	})))

	return mux
}

func handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "MailMind API is running")
}
