package smmpanel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func panelServer(t *testing.T, handle func(action string, r *http.Request) string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("key") != "secret" {
			w.Write([]byte(`{"error":"Invalid API key"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(handle(r.PostForm.Get("action"), r)))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBalance(t *testing.T) {
	srv := panelServer(t, func(action string, _ *http.Request) string {
		assert.Equal(t, "balance", action)
		return `{"balance":"100.84","currency":"USD"}`
	})

	bal, err := NewClient(srv.URL, "secret").Balance(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 100.84, bal.Balance, 0.0001)
	assert.Equal(t, "USD", bal.Currency)
}

func TestBalanceInvalidKey(t *testing.T) {
	srv := panelServer(t, func(string, *http.Request) string { return "" })

	_, err := NewClient(srv.URL, "wrong").Balance(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid API key", apiErr.Message)
}

func TestOrderStatusSingle(t *testing.T) {
	srv := panelServer(t, func(action string, r *http.Request) string {
		assert.Equal(t, "status", action)
		assert.Equal(t, "23501", r.PostForm.Get("order"))
		return `{"charge":"0.27819","start_count":"3572","status":"Partial","remains":"157","currency":"USD"}`
	})

	res, err := NewClient(srv.URL, "secret").OrderStatus(context.Background(), []string{"23501"})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "Partial", res[0].Status)
	assert.Equal(t, int64(157), res[0].Remains)
	assert.Equal(t, int64(3572), res[0].StartCount)
}

func TestOrderStatusSingleUnknownOrder(t *testing.T) {
	srv := panelServer(t, func(string, *http.Request) string {
		return `{"error":"Incorrect order ID"}`
	})

	res, err := NewClient(srv.URL, "secret").OrderStatus(context.Background(), []string{"1"})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "Incorrect order ID", res[0].Error)
}

func TestOrderStatusMany(t *testing.T) {
	srv := panelServer(t, func(action string, r *http.Request) string {
		assert.Equal(t, "1,10,100", r.PostForm.Get("orders"))
		return `{"1":{"charge":"0.27819","start_count":"3572","status":"Partial","remains":"157","currency":"USD"},
"10":{"error":"Incorrect order ID"},
"100":{"charge":1.44219,"start_count":234,"status":"In progress","remains":10,"currency":"USD"}}`
	})

	res, err := NewClient(srv.URL, "secret").OrderStatus(context.Background(), []string{"1", "10", "100"})
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, "1", res[0].OrderID)
	assert.Equal(t, "Incorrect order ID", res[1].Error)
	assert.Equal(t, "In progress", res[2].Status)
	assert.Equal(t, int64(10), res[2].Remains)
}

func TestRefillAndCancel(t *testing.T) {
	srv := panelServer(t, func(action string, _ *http.Request) string {
		switch action {
		case "refill":
			return `[{"order":1,"refill":1},{"order":2,"refill":{"error":"Incorrect order ID"}}]`
		case "cancel":
			return `[{"order":9,"cancel":2}]`
		}
		return `{"error":"Incorrect request"}`
	})
	client := NewClient(srv.URL, "secret")

	refill, err := client.Refill(context.Background(), []string{"1", "2"})
	require.NoError(t, err)
	require.Len(t, refill, 2)
	assert.Equal(t, "1", refill[0].Ref)
	assert.Empty(t, refill[0].Error)
	assert.Equal(t, "Incorrect order ID", refill[1].Error)

	cancel, err := client.Cancel(context.Background(), []string{"9", "8"})
	require.NoError(t, err)
	require.Len(t, cancel, 2)
	assert.Equal(t, "2", cancel[0].Ref)
	assert.Equal(t, "no response for order", cancel[1].Error)
}

func TestServerErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "secret").Balance(context.Background())
	assert.Error(t, err)
}

func TestServices(t *testing.T) {
	srv := panelServer(t, func(action string, _ *http.Request) string {
		assert.Equal(t, "services", action)
		return `[{"service":1,"name":"Followers","type":"Default","category":"First Category","rate":"0.90","min":"50","max":"10000","refill":true,"cancel":true},
			{"service":"2","name":"Comments","type":"Custom Comments","category":"Second Category","rate":"8","min":"10","max":"1500","refill":false,"cancel":true}]`
	})

	services, err := NewClient(srv.URL, "secret").Services(context.Background())
	require.NoError(t, err)
	require.Len(t, services, 2)
	assert.Equal(t, "1", services[0].ID)
	assert.InDelta(t, 0.9, services[0].Rate, 0.0001)
	assert.Equal(t, int64(10000), services[0].Max)
	assert.True(t, services[0].Refill)
	assert.Equal(t, "2", services[1].ID)
	assert.False(t, services[1].Refill)
}
