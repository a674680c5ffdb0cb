package client

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetQuote(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/swap/v1/quote", r.URL.Path)
		assert.Equal(t, "WETH", r.URL.Query().Get("sellToken"))
		assert.Equal(t, "USDC", r.URL.Query().Get("buyToken"))
		assert.Equal(t, "100000000000000000", r.URL.Query().Get("sellAmount"))
		assert.Equal(t, "secret", r.Header.Get("0x-api-key"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"price":            "1843.12",
			"to":               "0xdef1c0ded9bec7f1a1670819833240f027b25eff",
			"allowanceTarget":  "0xdef1c0ded9bec7f1a1670819833240f027b25eff",
			"sellTokenAddress": "0xc778417e063141139fce010982780140aa0cd5ab",
			"buyTokenAddress":  "0x07865c6e87b9f70255377e024ace6630c1eaa37f",
			"sellAmount":       "100000000000000000",
			"buyAmount":        "184312000",
			"value":            "0",
			"gasPrice":         "5000000000",
			"data":             "0x01",
		})
	}))
	defer server.Close()

	c := NewZRXClient(server.URL+"/", "secret")
	q, err := c.GetQuote(context.Background(), QuoteParams{
		SellToken:  "WETH",
		BuyToken:   "USDC",
		SellAmount: big.NewInt(100000000000000000),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, common.HexToAddress("0xdef1c0ded9bec7f1a1670819833240f027b25eff"), q.To)
	assert.Equal(t, "184312000", q.BuyAmountBase().String())
	assert.Equal(t, "1843.12", q.Price.String())
}

func TestGetQuoteSurfacesErrorBodyWithoutRetry(t *testing.T) {
	var calls int
	body := `{"code":100,"reason":"Validation Failed","validationErrors":[{"field":"sellAmount","code":1004,"reason":"INSUFFICIENT_ASSET_LIQUIDITY"}]}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	c := NewZRXClient(server.URL, "")
	params := QuoteParams{SellToken: "DAI", BuyToken: "WETH", SellAmount: big.NewInt(7)}
	_, err := c.GetQuote(context.Background(), params)
	require.Error(t, err)

	var qerr *QuoteRequestError
	require.True(t, errors.As(err, &qerr))
	assert.Equal(t, http.StatusBadRequest, qerr.StatusCode)
	assert.Equal(t, body, qerr.Body)
	assert.Equal(t, params, qerr.Params)
	assert.Contains(t, err.Error(), "sellAmount=7")
	assert.Contains(t, err.Error(), "INSUFFICIENT_ASSET_LIQUIDITY")
	assert.Equal(t, 1, calls)
}

func TestGetQuoteTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := NewZRXClient(url, "")
	_, err := c.GetQuote(context.Background(), QuoteParams{SellToken: "DAI", BuyToken: "WETH", SellAmount: big.NewInt(1)})

	var qerr *QuoteRequestError
	require.True(t, errors.As(err, &qerr))
	assert.Error(t, qerr.Err)
	assert.Zero(t, qerr.StatusCode)
}

func TestGetQuoteRejectsUnresolvedAmount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))
	defer server.Close()

	c := NewZRXClient(server.URL, "")
	_, err := c.GetQuote(context.Background(), QuoteParams{SellToken: "DAI", BuyToken: "WETH"})
	assert.Error(t, err)
	_, err = c.GetQuote(context.Background(), QuoteParams{SellToken: "DAI", BuyToken: "WETH", SellAmount: big.NewInt(0)})
	assert.Error(t, err)
}
