// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/wall_robot/internal/telemetry"
)

const (
	streamBuffer       = 8
	streamWriteTimeout = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // UI may be served from another host during development
	},
}

// handleIMUStream pushes a snapshot to the client on every attitude update.
// The latest snapshot, if any, is sent first.
func handleIMUStream(store *telemetry.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("stream: websocket upgrade error: %v", err)
			return
		}
		defer conn.Close()

		id, updates := store.Subscribe(streamBuffer)
		defer store.Unsubscribe(id)
		log.WithField("remote", r.RemoteAddr).Debug("stream: client connected")

		// Clients only listen; reading detects the close.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-closed:
				log.WithField("remote", r.RemoteAddr).Debug("stream: client disconnected")
				return
			case snap, ok := <-updates:
				if !ok {
					return
				}
				conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
				if err := conn.WriteJSON(snap); err != nil {
					log.Printf("stream: write error: %v", err)
					return
				}
			}
		}
	}
}
