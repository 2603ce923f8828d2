package gsi_client

import (
	"context"
	"fmt"
	"time"

	"github.com/mcdev12/gametimer/go/clients"
)

// GSIClient reads raw game state from the local integration server.
type GSIClient struct {
	*clients.BaseClient
}

func NewGSIClient(baseURL string, timeout time.Duration) *GSIClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := &GSIClient{
		BaseClient: clients.NewBaseClient(baseURL),
	}

	client.SetHeader(AcceptHeader, JSONMimeType)
	if timeout > 0 {
		client.SetTimeout(timeout)
	}

	return client
}

// GetGameState returns the raw JSON body of the game state endpoint.
// Decoding and validation are left to the caller.
func (c *GSIClient) GetGameState(ctx context.Context) ([]byte, error) {
	body, err := c.Get(ctx, GameStateEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to get game state: %w", err)
	}
	return body, nil
}
