package client

import (
	"context"
	"fmt"
	"math/big"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"zrx-settle/pkg/types"
)

const quotePath = "/swap/v1/quote"

// QuoteParams is the (sellToken, buyToken, sellAmount) triple a quote is
// requested for. Tokens may be symbols or addresses; the amount is always a
// concrete base-unit integer.
type QuoteParams struct {
	SellToken  string
	BuyToken   string
	SellAmount *big.Int
}

// Query returns the aggregator query string for the params.
func (p QuoteParams) Query() url.Values {
	q := url.Values{}
	q.Set("sellToken", p.SellToken)
	q.Set("buyToken", p.BuyToken)
	if p.SellAmount != nil {
		q.Set("sellAmount", p.SellAmount.String())
	}
	return q
}

// QuoteRequestError is returned when the aggregator could not be reached or
// rejected the query. Body holds the aggregator's error object verbatim.
type QuoteRequestError struct {
	Params     QuoteParams
	StatusCode int
	Body       string
	Err        error
}

func (e *QuoteRequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("quote request %s failed: %v", e.Params.Query().Encode(), e.Err)
	}
	return fmt.Sprintf("quote request %s rejected (status %d): %s", e.Params.Query().Encode(), e.StatusCode, e.Body)
}

func (e *QuoteRequestError) Unwrap() error {
	return e.Err
}

// ZRXClient talks to one network's 0x swap API.
type ZRXClient struct {
	client *resty.Client
}

// NewZRXClient creates a client for the given API base URL (e.g.
// https://ropsten.api.0x.org/). Requests are never retried: a stale quote
// must be re-requested by the caller, not replayed.
func NewZRXClient(baseURL, apiKey string) *ZRXClient {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetHeader("0x-api-key", apiKey)
	}
	return &ZRXClient{client: client}
}

// GetQuote fetches a firm quote for selling p.SellAmount of p.SellToken.
func (c *ZRXClient) GetQuote(ctx context.Context, p QuoteParams) (*types.Quote, error) {
	if p.SellAmount == nil || p.SellAmount.Sign() <= 0 {
		return nil, errors.Errorf("sell amount must be a positive base-unit integer, got %v", p.SellAmount)
	}

	var quote types.Quote
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParamsFromValues(p.Query()).
		SetResult(&quote).
		Get(quotePath)
	if err != nil {
		return nil, &QuoteRequestError{Params: p, Err: err}
	}
	if !resp.IsSuccess() {
		return nil, &QuoteRequestError{
			Params:     p,
			StatusCode: resp.StatusCode(),
			Body:       strings.TrimSpace(string(resp.Body())),
		}
	}

	return &quote, nil
}
