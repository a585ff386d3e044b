package health

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/rs/cors"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Stats reports live counters shown on /health.
type Stats struct {
	QueueDepth     func() int
	InFlight       func() int
	ActivePomodoro func() int
}

type status struct {
	Status         string `json:"status"`
	DB             string `json:"db"`
	QueueDepth     int    `json:"queue_depth"`
	InFlight       int    `json:"in_flight"`
	ActivePomodoro int    `json:"active_pomodoro"`
}

// Handler serves "/" and "/health".
func Handler(db Pinger, stats Stats) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("Bot is running"))
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		st := status{Status: "ok", DB: "ok"}
		code := http.StatusOK
		if err := db.PingContext(ctx); err != nil {
			st.Status, st.DB = "degraded", err.Error()
			code = http.StatusServiceUnavailable
		}
		st.QueueDepth = call(stats.QueueDepth)
		st.InFlight = call(stats.InFlight)
		st.ActivePomodoro = call(stats.ActivePomodoro)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if err := json.NewEncoder(w).Encode(st); err != nil {
			log.Printf("health: encode: %v", err)
		}
	})

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "HEAD", "OPTIONS"},
	})
	return c.Handler(mux)
}

func call(f func() int) int {
	if f == nil {
		return 0
	}
	return f()
}

// Serve runs the status server until ctx is cancelled.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("🚀 status server is running on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
