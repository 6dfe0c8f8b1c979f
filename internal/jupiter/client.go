// Package jupiter integrates the Jupiter aggregator: quotes, swap
// transaction assembly and USD token prices.
package jupiter

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"solana-soldier/internal/domain"
)

const (
	defaultQuoteBaseURL = "https://quote-api.jup.ag/v6"
	defaultPriceBaseURL = "https://price.jup.ag/v6"
)

// API is the aggregator surface the executor depends on.
type API interface {
	GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*domain.Quote, error)
	BuildSwapTransaction(ctx context.Context, quote *domain.Quote, userPublicKey string) (string, error)
	GetPriceUSD(ctx context.Context, mint string) (float64, error)
}

// Client talks to the public Jupiter APIs.
type Client struct {
	quote   *resty.Client
	price   *resty.Client
	logger  *log.Logger
	limiter *rate.Limiter
}

var _ API = (*Client)(nil)

// NewClient creates a Jupiter client. rps bounds the request rate against
// the public endpoints.
func NewClient(rps float64, logger *log.Logger) *Client {
	return &Client{
		quote:   resty.New().SetBaseURL(defaultQuoteBaseURL).SetTimeout(20 * time.Second),
		price:   resty.New().SetBaseURL(defaultPriceBaseURL).SetTimeout(10 * time.Second),
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(rps), 2),
	}
}

// SetBaseURLs overrides both endpoints. Used in tests.
func (c *Client) SetBaseURLs(quoteURL, priceURL string) {
	c.quote.SetBaseURL(quoteURL)
	c.price.SetBaseURL(priceURL)
}

type quoteResponse struct {
	InputMint      string `json:"inputMint"`
	OutputMint     string `json:"outputMint"`
	InAmount       string `json:"inAmount"`
	OutAmount      string `json:"outAmount"`
	PriceImpactPct string `json:"priceImpactPct"`
	SlippageBps    int    `json:"slippageBps"`
}

// GetQuote fetches a swap quote. amount is in input-mint base units.
func (c *Client) GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*domain.Quote, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.quote.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"inputMint":           inputMint,
			"outputMint":          outputMint,
			"amount":              strconv.FormatUint(amount, 10),
			"slippageBps":         strconv.Itoa(slippageBps),
			"onlyDirectRoutes":    "false",
			"asLegacyTransaction": "false",
		}).
		Get("/quote")
	if err != nil {
		return nil, fmt.Errorf("jupiter quote: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("jupiter quote: status %d: %s", resp.StatusCode(), resp.String())
	}

	raw := resp.Body()
	var q quoteResponse
	if err := json.Unmarshal(raw, &q); err != nil {
		return nil, fmt.Errorf("jupiter quote: decode: %w", err)
	}

	inAmount, err := strconv.ParseUint(q.InAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("jupiter quote: bad inAmount %q", q.InAmount)
	}
	outAmount, err := strconv.ParseUint(q.OutAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("jupiter quote: bad outAmount %q", q.OutAmount)
	}
	impact, err := strconv.ParseFloat(q.PriceImpactPct, 64)
	if err != nil {
		return nil, fmt.Errorf("jupiter quote: bad priceImpactPct %q", q.PriceImpactPct)
	}

	quoteCopy := make(json.RawMessage, len(raw))
	copy(quoteCopy, raw)

	return &domain.Quote{
		InputMint:      q.InputMint,
		OutputMint:     q.OutputMint,
		InAmount:       inAmount,
		OutAmount:      outAmount,
		PriceImpactPct: impact,
		SlippageBps:    q.SlippageBps,
		Raw:            quoteCopy,
	}, nil
}

// BuildSwapTransaction asks the aggregator to assemble an unsigned swap
// transaction for the quoted route. Returns the base64 transaction.
func (c *Client) BuildSwapTransaction(ctx context.Context, quote *domain.Quote, userPublicKey string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	body := map[string]interface{}{
		"quoteResponse":             json.RawMessage(quote.Raw),
		"userPublicKey":             userPublicKey,
		"wrapAndUnwrapSol":          true,
		"dynamicComputeUnitLimit":   true,
		"prioritizationFeeLamports": "auto",
	}

	var result struct {
		SwapTransaction string `json:"swapTransaction"`
	}

	resp, err := c.quote.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		Post("/swap")
	if err != nil {
		return "", fmt.Errorf("jupiter swap build: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("jupiter swap build: status %d: %s", resp.StatusCode(), resp.String())
	}
	if result.SwapTransaction == "" {
		return "", fmt.Errorf("jupiter swap build: empty transaction in response")
	}

	return result.SwapTransaction, nil
}

// GetPriceUSD fetches the current USD price of a mint.
func (c *Client) GetPriceUSD(ctx context.Context, mint string) (float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	var result struct {
		Data map[string]struct {
			Price float64 `json:"price"`
		} `json:"data"`
	}

	resp, err := c.price.R().
		SetContext(ctx).
		SetQueryParam("ids", mint).
		SetResult(&result).
		Get("/price")
	if err != nil {
		return 0, fmt.Errorf("jupiter price: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("jupiter price: status %d: %s", resp.StatusCode(), resp.String())
	}

	entry, ok := result.Data[mint]
	if !ok {
		return 0, fmt.Errorf("jupiter price: no price for %s", mint)
	}
	return entry.Price, nil
}
