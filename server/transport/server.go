/*
 * Copyright 2025 The Notepair Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package transport provides the real-time websocket server of Notepair. A
// connection authenticates once at upgrade and then exchanges tagged event
// envelopes with the server.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/notepair-team/notepair/api/events"
	"github.com/notepair-team/notepair/server/backend"
	"github.com/notepair-team/notepair/server/logging"
	"github.com/notepair-team/notepair/server/sessions"
)

// maxMessageBytes is the maximum size of a single inbound message.
const maxMessageBytes = 1 << 20

// Server is the websocket server that dispatches client events to the
// session coordinator and fans broadcasts back out to connections.
type Server struct {
	conf        *Config
	backend     *backend.Backend
	coordinator *sessions.Coordinator

	router       *mux.Router
	upgrader     websocket.Upgrader
	httpServer   *http.Server
	pingInterval time.Duration
}

// NewServer creates a new instance of Server.
func NewServer(conf *Config, be *backend.Backend, coordinator *sessions.Coordinator) *Server {
	s := &Server{
		conf:        conf,
		backend:     be,
		coordinator: coordinator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Origin policy is left to the deployment's proxy layer.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		pingInterval: conf.ParsePingInterval(),
	}

	router := mux.NewRouter()
	router.HandleFunc("/events", s.handleWebSocket).Methods(http.MethodGet)
	s.router = router

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", conf.Port),
		Handler: router,
	}

	return s
}

// Handler returns the HTTP handler of this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts this server by opening the transport port.
func (s *Server) Start() error {
	go func() {
		logging.DefaultLogger().Infof("serving transport on %d", s.conf.Port)

		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logging.DefaultLogger().Error(err)
		}
	}()

	return nil
}

// Shutdown shuts down this server.
func (s *Server) Shutdown(graceful bool) {
	if graceful {
		if err := s.httpServer.Shutdown(context.Background()); err != nil {
			logging.DefaultLogger().Error(err)
		}
		return
	}

	if err := s.httpServer.Close(); err != nil {
		logging.DefaultLogger().Error(err)
	}
}

// handleWebSocket authenticates the request, upgrades it to a websocket and
// runs the connection's read loop until it disconnects.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, err := verifyToken(s.conf.AuthSecret, tokenFromRequest(r))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.DefaultLogger().Warnf("CONN: upgrade for %s: %v", userID, err)
		return
	}

	conn := newConnection(userID, ws)
	s.backend.Metrics.AddConnection()
	go conn.writePump(s.pingInterval)

	ctx := logging.With(r.Context(), logging.New("conn", logging.NewField("user", userID.String())))
	logging.From(ctx).Infof("CONN: user %s connected", userID)

	s.readPump(ctx, conn)
}

// readPump reads and dispatches inbound envelopes. It returns when the
// connection closes, leaving every joined session on the way out.
func (s *Server) readPump(ctx context.Context, conn *connection) {
	defer s.cleanup(ctx, conn)

	conn.ws.SetReadLimit(maxMessageBytes)

	for {
		_, message, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.From(ctx).Debugf("CONN: read from %s: %v", conn.userID, err)
			}
			return
		}

		var envelope events.Envelope
		if err := json.Unmarshal(message, &envelope); err != nil {
			s.sendError(conn, codeProtocolError, err)
			continue
		}

		s.dispatch(ctx, conn, envelope)
	}
}

// cleanup leaves every session joined over the connection and broadcasts the
// departures, then releases the connection.
func (s *Server) cleanup(ctx context.Context, conn *connection) {
	conn.close()

	for _, sessionID := range conn.sessions() {
		s.leaveSession(ctx, conn, sessionID)
	}

	s.backend.Metrics.RemoveConnection()
	logging.From(ctx).Infof("CONN: user %s disconnected", conn.userID)
}
