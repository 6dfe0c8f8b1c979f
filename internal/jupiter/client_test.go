package jupiter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"solana-soldier/internal/domain"
)

func quoteFixture(raw json.RawMessage) *domain.Quote {
	return &domain.Quote{Raw: raw}
}

func newTestClient(t *testing.T, quoteHandler, priceHandler http.HandlerFunc) *Client {
	t.Helper()

	quoteServer := httptest.NewServer(quoteHandler)
	t.Cleanup(quoteServer.Close)
	priceServer := httptest.NewServer(priceHandler)
	t.Cleanup(priceServer.Close)

	c := NewClient(100, nil)
	c.SetBaseURLs(quoteServer.URL, priceServer.URL)
	return c
}

func TestGetQuote(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/quote" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("inputMint") != "SOL" || q.Get("outputMint") != "TOKEN" {
			t.Errorf("unexpected mints %s -> %s", q.Get("inputMint"), q.Get("outputMint"))
		}
		if q.Get("amount") != "100000000" {
			t.Errorf("unexpected amount %s", q.Get("amount"))
		}
		if q.Get("slippageBps") != "100" {
			t.Errorf("unexpected slippage %s", q.Get("slippageBps"))
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"inputMint":      "SOL",
			"outputMint":     "TOKEN",
			"inAmount":       "100000000",
			"outAmount":      "420000000",
			"priceImpactPct": "0.42",
			"slippageBps":    100,
		})
	}, nil)

	quote, err := c.GetQuote(context.Background(), "SOL", "TOKEN", 100000000, 100)
	if err != nil {
		t.Fatalf("GetQuote: %v", err)
	}

	if quote.InAmount != 100000000 || quote.OutAmount != 420000000 {
		t.Errorf("unexpected amounts: in=%d out=%d", quote.InAmount, quote.OutAmount)
	}
	if quote.PriceImpactPct != 0.42 {
		t.Errorf("expected impact 0.42, got %f", quote.PriceImpactPct)
	}
	if len(quote.Raw) == 0 {
		t.Error("raw quote body must be preserved for the swap build")
	}
}

func TestGetQuote_HTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}, nil)

	_, err := c.GetQuote(context.Background(), "SOL", "TOKEN", 1, 100)
	if err == nil {
		t.Fatal("expected error on HTTP 400")
	}
}

func TestBuildSwapTransaction(t *testing.T) {
	rawQuote := json.RawMessage(`{"inAmount":"1","outAmount":"2"}`)

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/swap" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}

		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)

		if body["userPublicKey"] != "walletPub" {
			t.Errorf("unexpected user pubkey %v", body["userPublicKey"])
		}
		if body["wrapAndUnwrapSol"] != true {
			t.Error("wrapAndUnwrapSol must be set")
		}
		if _, ok := body["quoteResponse"]; !ok {
			t.Error("quoteResponse must be echoed back")
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"swapTransaction": "dHhkYXRh"})
	}, nil)

	tx, err := c.BuildSwapTransaction(context.Background(),
		quoteFixture(rawQuote), "walletPub")
	if err != nil {
		t.Fatalf("BuildSwapTransaction: %v", err)
	}
	if tx != "dHhkYXRh" {
		t.Errorf("unexpected tx %s", tx)
	}
}

func TestBuildSwapTransaction_EmptyResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}, nil)

	_, err := c.BuildSwapTransaction(context.Background(),
		quoteFixture(json.RawMessage(`{}`)), "walletPub")
	if err == nil {
		t.Fatal("expected error for empty swapTransaction")
	}
}

func TestGetPriceUSD(t *testing.T) {
	c := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/price" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("ids") != "mintX" {
			t.Errorf("unexpected ids %s", r.URL.Query().Get("ids"))
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"mintX": map[string]float64{"price": 0.0123},
			},
		})
	})

	price, err := c.GetPriceUSD(context.Background(), "mintX")
	if err != nil {
		t.Fatalf("GetPriceUSD: %v", err)
	}
	if price != 0.0123 {
		t.Errorf("expected 0.0123, got %f", price)
	}
}

func TestGetPriceUSD_Missing(t *testing.T) {
	c := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"data": map[string]interface{}{}})
	})

	_, err := c.GetPriceUSD(context.Background(), "unknownMint")
	if err == nil {
		t.Fatal("expected error for unknown mint")
	}
}
