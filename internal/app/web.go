// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/env_monitor/internal/config"
	"github.com/relabs-tech/env_monitor/internal/env"
	"github.com/relabs-tech/env_monitor/internal/mqtt"
)

const (
	wsSendBuffer   = 16
	wsWriteTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

type wsClient struct {
	conn *websocket.Conn
	send chan env.Sample
}

// Dashboard keeps the latest sample of every channel and serves them over
// HTTP and websocket.
type Dashboard struct {
	logger *slog.Logger
	static http.Handler

	mu     sync.RWMutex
	latest map[string]env.Sample

	clientsMu sync.Mutex
	clients   map[*wsClient]struct{}
}

// NewDashboard serves static files from staticDir at "/".
func NewDashboard(staticDir string, logger *slog.Logger) *Dashboard {
	return &Dashboard{
		logger:  logger,
		static:  http.FileServer(http.Dir(staticDir)),
		latest:  map[string]env.Sample{},
		clients: map[*wsClient]struct{}{},
	}
}

// HandleSample records s as the latest state of its channel and pushes it to
// every websocket client. Its signature matches mqtt.SampleHandler.
func (d *Dashboard) HandleSample(_ string, s env.Sample) {
	d.mu.Lock()
	d.latest[s.Channel] = s
	d.mu.Unlock()

	d.clientsMu.Lock()
	defer d.clientsMu.Unlock()
	for c := range d.clients {
		select {
		case c.send <- s:
		default:
			// Slow client; its writer closes the connection.
			d.dropLocked(c)
			d.logger.Warn("websocket client too slow, dropped", "remote", c.conn.RemoteAddr().String())
		}
	}
}

// Samples returns the latest sample of every channel, ordered by channel.
func (d *Dashboard) Samples() []env.Sample {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]env.Sample, 0, len(d.latest))
	for _, s := range d.latest {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Channel < out[j].Channel })
	return out
}

// Handler returns the HTTP routes: /api/channels, /ws and the static files.
func (d *Dashboard) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/channels", d.handleChannels)
	mux.HandleFunc("/ws", d.handleWS)
	mux.Handle("/", d.static)
	return mux
}

func (d *Dashboard) handleChannels(w http.ResponseWriter, r *http.Request) {
	samples := d.Samples()
	if len(samples) == 0 {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(samples); err != nil {
		d.logger.Error("json encode error", "error", err)
	}
}

func (d *Dashboard) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		d.logger.Warn("websocket upgrade error", "error", err)
		return
	}
	c := &wsClient{conn: conn, send: make(chan env.Sample, wsSendBuffer)}

	// Snapshot and registration happen under clientsMu so no broadcast is
	// lost in between.
	d.clientsMu.Lock()
	for _, s := range d.Samples() {
		select {
		case c.send <- s:
		default:
		}
	}
	d.clients[c] = struct{}{}
	d.clientsMu.Unlock()
	d.logger.Debug("websocket client connected", "remote", conn.RemoteAddr().String())

	go d.writeLoop(c)

	// The read loop only detects the peer going away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				d.logger.Warn("websocket error", "error", err)
			}
			break
		}
	}
	d.clientsMu.Lock()
	d.dropLocked(c)
	d.clientsMu.Unlock()
}

func (d *Dashboard) writeLoop(c *wsClient) {
	defer c.conn.Close()
	for s := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := c.conn.WriteJSON(s); err != nil {
			d.logger.Debug("websocket write failed", "error", err)
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}

// dropLocked unregisters c and stops its writer. clientsMu must be held.
func (d *Dashboard) dropLocked(c *wsClient) {
	if _, ok := d.clients[c]; !ok {
		return
	}
	delete(d.clients, c)
	close(c.send)
}

// RunWeb subscribes to the channel topics and serves the dashboard on
// WEB_SERVER_PORT until ctx is done.
func RunWeb(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	dash := NewDashboard("web", logger)

	client := mqtt.NewClient(cfg.MQTTBroker, cfg.MQTTClientIDWeb, logger)
	defer client.Disconnect()
	if err := client.SubscribeSamples(cfg.TopicPrefix+"/+", dash.HandleSample); err != nil {
		return err
	}
	if err := client.Connect(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.WebServerPort),
		Handler:           dash.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return serveUntilDone(ctx, srv, logger)
}
