package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/onegreenvn/campaign-lifecycle-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// AllCampaignsKey subscribes to history entries of every campaign
const AllCampaignsKey = "campaign:all"

// CampaignKey returns the subscription key for one campaign's history
func CampaignKey(campaignID uint) string {
	return fmt.Sprintf("campaign:%d", campaignID)
}

// SSEHub manages Server-Sent Events connections for live history streaming
type SSEHub struct {
	// Key format: "campaign:<id>" or "campaign:all"
	clients map[string]map[chan []byte]bool
	mu      sync.RWMutex
}

// NewSSEHub creates a new SSE hub
func NewSSEHub() *SSEHub {
	return &SSEHub{
		clients: make(map[string]map[chan []byte]bool),
	}
}

// RegisterClient registers a new SSE client for a key
func (h *SSEHub) RegisterClient(key string) chan []byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	clientChan := make(chan []byte, 10)

	if h.clients[key] == nil {
		h.clients[key] = make(map[chan []byte]bool)
	}
	h.clients[key][clientChan] = true

	logrus.Infof("SSE client registered for %s (total clients: %d)", key, len(h.clients[key]))
	return clientChan
}

// UnregisterClient unregisters an SSE client
func (h *SSEHub) UnregisterClient(key string, clientChan chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[key] != nil {
		if _, ok := h.clients[key][clientChan]; ok {
			delete(h.clients[key], clientChan)
			close(clientChan)
		}

		// Clean up empty maps
		if len(h.clients[key]) == 0 {
			delete(h.clients, key)
		}
	}

	logrus.Infof("SSE client unregistered for %s (remaining clients: %d)", key, len(h.clients[key]))
}

// BroadcastHistory sends a stored history entry to the campaign's subscribers and to global subscribers
func (h *SSEHub) BroadcastHistory(entry *models.CampaignHistory) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	campaignClients := h.clients[CampaignKey(entry.CampaignID)]
	allClients := h.clients[AllCampaignsKey]
	if len(campaignClients) == 0 && len(allClients) == 0 {
		return
	}

	entryJSON, err := json.Marshal(entry.ToResponse())
	if err != nil {
		logrus.Errorf("Failed to marshal history entry for SSE: %v", err)
		return
	}
	message := []byte(fmt.Sprintf("event: history\ndata: %s\n\n", string(entryJSON)))

	h.sendLocked(CampaignKey(entry.CampaignID), message, campaignClients)
	h.sendLocked(AllCampaignsKey, message, allClients)
}

// sendLocked delivers without blocking (assumes lock is already held)
func (h *SSEHub) sendLocked(key string, message []byte, clients map[chan []byte]bool) {
	for clientChan := range clients {
		select {
		case clientChan <- message:
		default:
			// Channel is full, skip this client
			logrus.Warnf("SSE client channel full, skipping: %s", key)
		}
	}
}

// GetClientCount returns the number of clients for a key
func (h *SSEHub) GetClientCount(key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[key])
}

// SendHeartbeat sends a heartbeat message to keep connections alive
func (h *SSEHub) SendHeartbeat(key string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	heartbeat := []byte(fmt.Sprintf(": heartbeat %s\n\n", time.Now().Format(time.RFC3339)))
	for clientChan := range h.clients[key] {
		select {
		case clientChan <- heartbeat:
		default:
		}
	}
}
