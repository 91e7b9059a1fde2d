package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

type statusResponse struct {
	Device     DeviceID      `json:"device"`
	Status     string        `json:"status"`
	Updated    time.Time     `json:"updated"`
	RadioReady bool          `json:"radio_ready"`
	History    int           `json:"history"`
	Collected  int           `json:"collected"`
	Pending    int           `json:"pending"`
	Last       *Encounter    `json:"last,omitempty"`
	Stats      ReceiverStats `json:"stats"`
}

// NewAPIRouter exposes read-only JSON views of the app.
func NewAPIRouter(app *App) http.Handler {
	r := chi.NewRouter()

	r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
		history, collected := app.Collector.Counts()
		resp := statusResponse{
			Device:     app.ID,
			Status:     app.Status.Get(),
			Updated:    app.Status.Updated(),
			RadioReady: app.RadioReady(),
			History:    history,
			Collected:  collected,
			Pending:    app.Notifier.Pending(),
			Stats:      app.Stats(),
		}
		if last, ok := app.Collector.Last(); ok {
			resp.Last = &last
		}
		writeJSON(w, http.StatusOK, resp)
	})

	r.Get("/profile", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, app.Profiles.Get())
	})

	r.Get("/history", func(w http.ResponseWriter, req *http.Request) {
		limit := 0
		if v := req.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
				return
			}
			limit = n
		}
		writeJSON(w, http.StatusOK, app.Collector.Recent(limit))
	})

	r.Get("/collected", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, app.Collector.Collected())
	})

	r.Get("/countries", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, app.Countries)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

// ServeAPI runs the status API until ctx is cancelled.
func ServeAPI(ctx context.Context, addr string, app *App) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewAPIRouter(app),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Status API listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
