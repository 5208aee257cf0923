package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CJWorkbench/intercom/internal/config"
	"github.com/CJWorkbench/intercom/pkg/client"
	"github.com/CJWorkbench/intercom/pkg/connector"
	"github.com/CJWorkbench/intercom/pkg/intercom"
	"github.com/CJWorkbench/intercom/pkg/logging"
	"github.com/CJWorkbench/intercom/pkg/metrics"
	"github.com/CJWorkbench/intercom/pkg/pagination"
	"github.com/CJWorkbench/intercom/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// maxSecretsBytes bounds the /fetch request body.
const maxSecretsBytes = 1 << 20

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.LogLevel(cfg.LogLevel)
	logCfg.Pretty = cfg.LogPretty
	logCfg.File.Path = cfg.LogFile
	logging.Setup(logCfg)
	logger := logging.NewLogger("server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("Invalid REDIS_URL")
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Str("addr", opts.Addr).Msg("Failed to connect to Redis")
		}
		logger.Info().Str("addr", opts.Addr).Msg("Connected to Redis")
	}

	intercomClient, conn, err := newConnector(cfg, redisClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create Intercom client")
	}
	defer intercomClient.Close()

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newMux(redisClient, conn),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Shutdown failed")
		}
	}()

	logger.Info().
		Str("addr", server.Addr).
		Str("user_agent", cfg.UserAgent).
		Str("intercom_base_url", cfg.IntercomBaseURL).
		Int("max_pages", cfg.MaxPages).
		Msg("Starting Intercom connector server")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("Server failed")
	}
	logger.Info().Msg("Server stopped")
}

// newConnector wires the client, fetcher and API from cfg. A nil
// redisClient keeps rate limit state in memory.
func newConnector(cfg *config.Config, redisClient *redis.Client) (*client.Client, *connector.Connector, error) {
	clientCfg := client.DefaultConfig(cfg.UserAgent)
	clientCfg.Timeout = cfg.RequestTimeout
	clientCfg.RateLimit.MaxWait = cfg.RateLimitMaxWait
	if redisClient != nil {
		clientCfg.RateLimitStore = ratelimit.NewRedisStore(redisClient)
	}

	c, err := client.New(clientCfg)
	if err != nil {
		return nil, nil, err
	}

	fetcher := pagination.NewFetcher(c, pagination.Config{MaxPages: cfg.MaxPages})
	return c, connector.New(intercom.NewAPI(fetcher, cfg.IntercomBaseURL)), nil
}

func newMux(redisClient *redis.Client, conn *connector.Connector) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler(redisClient))
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/fetch", fetchHandler(conn))
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func readyHandler(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			if err := redisClient.Ping(ctx).Err(); err != nil {
				log.Warn().Err(err).Msg("Readiness check failed")
				http.Error(w, "Redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

type messageBody struct {
	Error messageJSON `json:"error"`
}

type messageJSON struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// fetchHandler runs one connector invocation. The request body is the
// host's secrets record; an empty body means no secrets.
func fetchHandler(conn *connector.Connector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		secrets := connector.Secrets{}
		if err := json.NewDecoder(io.LimitReader(r.Body, maxSecretsBytes)).Decode(&secrets); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, fmt.Sprintf("invalid secrets JSON: %v", err), http.StatusBadRequest)
			return
		}

		result := conn.Fetch(r.Context(), secrets)
		w.Header().Set("X-Invocation-Id", result.InvocationID)

		if result.Message != nil {
			writeJSON(w, messageBody{Error: messageJSON{
				ID:      result.Message.ID,
				Message: result.Message.String(),
			}})
			return
		}

		if r.URL.Query().Get("format") == "csv" {
			w.Header().Set("Content-Type", "text/csv; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			if err := result.Table.WriteCSV(w); err != nil {
				log.Error().Err(err).Str("invocation_id", result.InvocationID).Msg("Failed to write CSV")
			}
			return
		}

		writeJSON(w, result.Table)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("Failed to write response")
	}
}
