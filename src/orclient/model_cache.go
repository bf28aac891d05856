package orclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/elee1766/procurebot/src/aisdk"
)

// ModelCache caches the model list for a TTL.
type ModelCache struct {
	mu        sync.Mutex
	models    map[string]*aisdk.ModelInfo
	fetchedAt time.Time
	ttl       time.Duration
	client    *Client
}

// NewModelCache creates a new model cache
func NewModelCache(client *Client, ttl time.Duration) *ModelCache {
	return &ModelCache{ttl: ttl, client: client}
}

// GetModel returns the named model, refreshing the list when stale.
func (mc *ModelCache) GetModel(ctx context.Context, modelID string) (*aisdk.ModelInfo, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if mc.models == nil || time.Since(mc.fetchedAt) >= mc.ttl {
		models, err := mc.client.listModels(ctx)
		if err != nil {
			return nil, err
		}
		mc.models = make(map[string]*aisdk.ModelInfo, len(models))
		for _, m := range models {
			mc.models[m.ID] = m
		}
		mc.fetchedAt = time.Now()
	}

	m, ok := mc.models[modelID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidModel, modelID)
	}
	return m, nil
}

type modelsResponse struct {
	Data []*aisdk.ModelInfo `json:"data"`
}

// listModels fetches all models from the API.
func (c *Client) listModels(ctx context.Context) ([]*aisdk.ModelInfo, error) {
	resp, err := c.doRequestWithRetry(ctx, http.MethodGet, "/models", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, c.handleError(resp)
	}

	var out modelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return out.Data, nil
}
