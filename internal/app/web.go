// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/wall_robot/internal/config"
	"github.com/relabs-tech/wall_robot/internal/motor"
	"github.com/relabs-tech/wall_robot/internal/telemetry"
)

// Controller accepts drive commands from the UI.
type Controller interface {
	Apply(motor.Command) error
	LastInput() motor.Input
}

type imuResponse struct {
	telemetry.Snapshot
	Input string `json:"input"`
}

type controlResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Handler builds the HTTP routes. Static files are served from staticDir
// when it is non-empty.
func Handler(store *telemetry.Store, ctl Controller, staticDir string) http.Handler {
	mux := http.NewServeMux()

	imuHandler := func(w http.ResponseWriter, r *http.Request) {
		snap, ok := store.Snapshot()
		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, imuResponse{Snapshot: snap, Input: ctl.LastInput().Input})
	}
	mux.HandleFunc("GET /api/imu", imuHandler)
	mux.HandleFunc("GET /imu", imuHandler)

	controlHandler := func(w http.ResponseWriter, r *http.Request) {
		var cmd motor.Command
		if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
			http.Error(w, fmt.Sprintf("invalid command: %v", err), http.StatusBadRequest)
			return
		}
		log.WithFields(log.Fields{
			"action": cmd.Action,
			"m1":     cmd.Motor1Speed,
			"m2":     cmd.Motor2Speed,
		}).Debug("web: control")
		if err := ctl.Apply(cmd); err != nil {
			log.Printf("web: motor error: %v", err)
			http.Error(w, "motor link error", http.StatusBadGateway)
			return
		}
		writeJSON(w, controlResponse{Status: "Success", Message: "Data received"})
	}
	mux.HandleFunc("POST /api/control", controlHandler)
	mux.HandleFunc("POST /control", controlHandler)

	inputHandler := func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, ctl.LastInput())
	}
	mux.HandleFunc("GET /api/input", inputHandler)
	mux.HandleFunc("GET /input", inputHandler)

	mux.HandleFunc("GET /ws/imu", handleIMUStream(store))

	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

// RunWeb serves the UI and API until ctx is cancelled.
func RunWeb(ctx context.Context, cfg *config.Config, store *telemetry.Store, ctl Controller) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler:           Handler(store, ctl, cfg.WebStaticDir),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("web: listening on %s (static from %q)", srv.Addr, cfg.WebStaticDir)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("web server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web server: %w", err)
	}
	log.Println("web: stopped")
	return nil
}
