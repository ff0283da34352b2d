package web_interface

import (
	"context"
	"time"
)

// handleBroadcasts handles broadcasting messages to all connected WebSocket clients
func (w *WebUI) handleBroadcasts(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			for client := range w.clients {
				client.Close()
				delete(w.clients, client)
			}
			w.mu.Unlock()
			return
		case msg := <-w.broadcast:
			w.mu.Lock()
			for client := range w.clients {
				client.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := client.WriteJSON(msg); err != nil {
					w.Logger.Warning("WebSocket write error: %v", err)
					// Remove the client that caused the error
					delete(w.clients, client)
					client.Close()
				}
			}
			w.mu.Unlock()
		}
	}
}

// startPeriodicUpdates sends periodic dashboard updates to connected clients
func (w *WebUI) startPeriodicUpdates(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if w.ClientCount() == 0 {
				continue
			}
			w.BroadcastUpdate("dashboard_update", w.GetDashboardData(ctx))
		}
	}
}
