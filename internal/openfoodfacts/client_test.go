package openfoodfacts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const teaResponse = `{"code":"0001","status":1,"product":{"product_name":"Tea","ecoscore_grade":"a","ecoscore_data":{"agribalyse":{"warning":"W","impacts":{"carbon":12,"water":3,"land":0.5}}}}}`

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts = append([]Option{WithRatePerMinute(6000)}, opts...)
	return NewClient(server.URL+"/api/v2/product/", opts...)
}

func TestClient_FetchByBarcode_Success(t *testing.T) {
	var gotPath, gotFields, gotUserAgent string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotFields = r.URL.Query().Get("fields")
		gotUserAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(teaResponse))
	}, WithUserAgent("EcoConsumoTest/1.0"))

	product, err := client.FetchByBarcode(context.Background(), "0001")

	require.NoError(t, err)
	require.NotNil(t, product)
	require.NotNil(t, product.ProductName)
	assert.Equal(t, "Tea", *product.ProductName)
	assert.Equal(t, "/api/v2/product/0001", gotPath)
	assert.Equal(t, "product_name,ecoscore_grade,ecoscore_data", gotFields)
	assert.Equal(t, "EcoConsumoTest/1.0", gotUserAgent)

	normalized := Normalize(product)
	assert.Equal(t, "W Impactos estimados: CO2e: 12g, Água: 3L, Uso de terra: 0.5m².", normalized.EcoScoreDescription)
}

func TestClient_FetchByBarcode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"http 404", http.StatusNotFound, `{"status":0}`, ErrProductNotFound},
		{"missing product", http.StatusOK, `{"code":"0001","status":0,"status_verbose":"product not found"}`, ErrProductNotFound},
		{"empty product", http.StatusOK, `{"code":"0001","status":1,"product":{}}`, ErrProductNotFound},
		{"server error", http.StatusInternalServerError, `oops`, ErrUnavailable},
		{"malformed json", http.StatusOK, `{"product":`, ErrUnavailable},
		{"malformed product", http.StatusOK, `{"product":{"ecoscore_data":"yes"}}`, ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			product, err := client.FetchByBarcode(context.Background(), "0001")

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, product)
		})
	}
}

func TestClient_FetchByBarcode_Timeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		_, _ = w.Write([]byte(teaResponse))
	}, WithTimeout(50*time.Millisecond))

	_, err := client.FetchByBarcode(context.Background(), "0001")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestClient_FetchByBarcode_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	client := NewClient(baseURL, WithRatePerMinute(6000))

	_, err := client.FetchByBarcode(context.Background(), "0001")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClient_FetchByBarcode_EscapesBarcode(t *testing.T) {
	var gotRawPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotRawPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(teaResponse))
	})

	_, err := client.FetchByBarcode(context.Background(), "a/b")

	require.NoError(t, err)
	assert.Equal(t, "/api/v2/product/a%2Fb", gotRawPath)
}

func TestClient_CircuitBreakerOpens(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}, WithCircuitBreaker(CircuitBreakerConfig{
		Name:         "openfoodfacts-test",
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		FailureRatio: 0.5,
		MinRequests:  3,
	}))

	for i := 0; i < 3; i++ {
		_, err := client.FetchByBarcode(context.Background(), "0001")
		require.ErrorIs(t, err, ErrUnavailable)
	}

	_, err := client.FetchByBarcode(context.Background(), "0001")

	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(3), calls.Load(), "open breaker must not reach the upstream")
}

func TestClient_NotFoundDoesNotTripBreaker(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}, WithCircuitBreaker(CircuitBreakerConfig{
		Name:         "openfoodfacts-notfound-test",
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		FailureRatio: 0.5,
		MinRequests:  2,
	}))

	for i := 0; i < 5; i++ {
		_, err := client.FetchByBarcode(context.Background(), "0001")
		require.ErrorIs(t, err, ErrProductNotFound)
	}
	assert.Equal(t, int32(5), calls.Load())
}
