package client

import (
	"context"
	"fmt"
	"strings"

	oneclick "github.com/defuse-protocol/one-click-sdk-go"
)

// OneClickClient wraps the 1Click SDK token endpoint, used as a price source
type OneClickClient struct {
	client   *oneclick.APIClient
	jwtToken string
}

// NewOneClickClient creates a new 1Click API client. An empty baseURL keeps the SDK default.
func NewOneClickClient(jwtToken, baseURL string) *OneClickClient {
	config := oneclick.NewConfiguration()
	if baseURL != "" {
		config.Servers = oneclick.ServerConfigurations{{URL: baseURL}}
	}

	return &OneClickClient{
		client:   oneclick.NewAPIClient(config),
		jwtToken: jwtToken,
	}
}

// GetSupportedTokens retrieves all supported tokens with their USD prices
func (c *OneClickClient) GetSupportedTokens(ctx context.Context) ([]oneclick.TokenResponse, error) {
	if c.jwtToken != "" {
		ctx = context.WithValue(ctx, oneclick.ContextAccessToken, c.jwtToken)
	}

	resp, httpResp, err := c.client.OneClickAPI.GetTokens(ctx).Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get tokens: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != 200 {
		return nil, fmt.Errorf("API returned status code %d", httpResp.StatusCode)
	}

	return resp, nil
}

// ChainTokens retrieves the supported tokens of one blockchain
func (c *OneClickClient) ChainTokens(ctx context.Context, blockchain string) ([]oneclick.TokenResponse, error) {
	tokens, err := c.GetSupportedTokens(ctx)
	if err != nil {
		return nil, err
	}

	var out []oneclick.TokenResponse
	for _, token := range tokens {
		if strings.EqualFold(token.GetBlockchain(), blockchain) {
			out = append(out, token)
		}
	}
	return out, nil
}
