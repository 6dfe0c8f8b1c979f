// Package solscan fetches token metadata used by the risk gate.
package solscan

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://pro-api.solscan.io/v2.0"

// TokenMeta is token-level metadata from the explorer API.
type TokenMeta struct {
	Address      string
	Symbol       string
	Name         string
	Decimals     int
	Holders      int
	Creator      string
	CreatedAt    time.Time
	Supply       float64
	LiquidityUSD float64
}

// Holder is one entry of a token's holder distribution.
type Holder struct {
	Owner   string
	Amount  float64 // UI units
	Percent float64 // share of supply, 0..1
}

// Client is a Solscan Pro API client.
type Client struct {
	client  *resty.Client
	apiKey  string
	logger  *log.Logger
	limiter *rate.Limiter
}

// NewClient creates a Solscan client. rps bounds request rate; the free
// tier tolerates very little.
func NewClient(apiKey string, rps float64, logger *log.Logger) *Client {
	return &Client{
		client:  resty.New().SetBaseURL(defaultBaseURL).SetTimeout(15 * time.Second),
		apiKey:  apiKey,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// SetBaseURL overrides the API endpoint. Used in tests.
func (c *Client) SetBaseURL(u string) {
	c.client.SetBaseURL(u)
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("token", c.apiKey).
		SetQueryParams(params).
		SetResult(out).
		Get(path)
	if err != nil {
		return fmt.Errorf("solscan %s: %w", path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("solscan %s: status %d: %s", path, resp.StatusCode(), resp.String())
	}
	return nil
}

type tokenMetaResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Address     string  `json:"address"`
		Symbol      string  `json:"symbol"`
		Name        string  `json:"name"`
		Decimals    int     `json:"decimals"`
		Holder      int     `json:"holder"`
		Creator     string  `json:"creator"`
		CreatedTime int64   `json:"created_time"`
		Supply      string  `json:"supply"`
		MarketCap   float64 `json:"market_cap"`
		Liquidity   float64 `json:"liquidity"`
	} `json:"data"`
}

// GetTokenMeta fetches token metadata by mint address.
func (c *Client) GetTokenMeta(ctx context.Context, mint string) (*TokenMeta, error) {
	var resp tokenMetaResponse
	err := c.get(ctx, "/token/meta", map[string]string{"address": mint}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("solscan token/meta: request not successful for %s", mint)
	}

	meta := &TokenMeta{
		Address:      resp.Data.Address,
		Symbol:       resp.Data.Symbol,
		Name:         resp.Data.Name,
		Decimals:     resp.Data.Decimals,
		Holders:      resp.Data.Holder,
		Creator:      resp.Data.Creator,
		LiquidityUSD: resp.Data.Liquidity,
	}
	if resp.Data.CreatedTime > 0 {
		meta.CreatedAt = time.Unix(resp.Data.CreatedTime, 0)
	}
	if s, err := strconv.ParseFloat(resp.Data.Supply, 64); err == nil {
		meta.Supply = s
	}
	return meta, nil
}

type tokenHoldersResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Total int `json:"total"`
		Items []struct {
			Owner   string  `json:"owner"`
			Amount  float64 `json:"amount"`
			Rank    int     `json:"rank"`
			Percent float64 `json:"percentage"`
		} `json:"items"`
	} `json:"data"`
}

// GetTopHolders fetches the largest holders of a token, biggest first.
func (c *Client) GetTopHolders(ctx context.Context, mint string, limit int) ([]Holder, error) {
	var resp tokenHoldersResponse
	err := c.get(ctx, "/token/holders", map[string]string{
		"address":   mint,
		"page":      "1",
		"page_size": fmt.Sprintf("%d", limit),
	}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("solscan token/holders: request not successful for %s", mint)
	}

	holders := make([]Holder, 0, len(resp.Data.Items))
	for _, item := range resp.Data.Items {
		holders = append(holders, Holder{
			Owner:  item.Owner,
			Amount: item.Amount,
			// API reports percentage points
			Percent: item.Percent / 100,
		})
	}
	return holders, nil
}
