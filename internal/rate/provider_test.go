package rate

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const samplePayload = `{
	"Date": "2026-10-15T11:30:00+03:00",
	"Valute": {
		"USD": {"CharCode": "USD", "Nominal": 1, "Value": 81.1234},
		"EUR": {"CharCode": "EUR", "Nominal": 1, "Value": 94.5678},
		"HUF": {"CharCode": "HUF", "Nominal": 100, "Value": 23.5}
	}
}`

func newTestServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestProvider_Rate(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, samplePayload)
	p := NewProvider(zap.NewNop(), WithURL(srv.URL))

	rate := p.Rate(context.Background())
	assert.True(t, decimal.RequireFromString("94.5678").Equal(rate), "got %s", rate)
}

func TestProvider_Nominal(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, samplePayload)
	p := NewProvider(zap.NewNop(), WithURL(srv.URL), WithCurrency("HUF"))

	rate, err := p.Fetch(context.Background())
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("0.235").Equal(rate), "got %s", rate)
}

func TestProvider_FallbackOnFailure(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "oops"},
		{name: "not found", status: http.StatusNotFound, body: samplePayload},
		{name: "malformed json", status: http.StatusOK, body: "{not json"},
		{name: "missing currency", status: http.StatusOK, body: `{"Valute": {"USD": {"Nominal": 1, "Value": 80}}}`},
		{name: "zero value", status: http.StatusOK, body: `{"Valute": {"EUR": {"Nominal": 1, "Value": 0}}}`},
		{name: "negative value", status: http.StatusOK, body: `{"Valute": {"EUR": {"Nominal": 1, "Value": -3}}}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t, tc.status, tc.body)
			p := NewProvider(zap.NewNop(), WithURL(srv.URL))

			_, err := p.Fetch(context.Background())
			assert.Error(t, err)

			rate := p.Rate(context.Background())
			assert.True(t, decimal.NewFromInt(100).Equal(rate), "got %s", rate)
		})
	}
}

func TestProvider_FallbackOnNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := NewProvider(zap.NewNop(), WithURL(url))
	assert.True(t, decimal.NewFromInt(100).Equal(p.Rate(context.Background())))
}

func TestProvider_FallbackOnTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	p := NewProvider(zap.NewNop(), WithURL(srv.URL), WithHTTPClient(NewHTTPClient(50*time.Millisecond)))
	assert.True(t, decimal.NewFromInt(100).Equal(p.Rate(context.Background())))
}

func TestProvider_CustomFallback(t *testing.T) {
	srv := newTestServer(t, http.StatusBadGateway, "")
	p := NewProvider(zap.NewNop(), WithURL(srv.URL), WithFallback(decimal.NewFromInt(105)))

	assert.True(t, decimal.NewFromInt(105).Equal(p.Rate(context.Background())))
}
