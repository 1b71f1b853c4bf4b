package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fairyhunter13/pos-register-simulator/internal/config"
	"github.com/fairyhunter13/pos-register-simulator/internal/queue"
	"github.com/fairyhunter13/pos-register-simulator/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedCSV = `upc,name,wholesalePrice,retailPrice,quantity
A123,Apple,0.50,1.00,100
B234,Peach,0.75,1.25,10
C123,Milk,2.15,4.99,2
`

type ackResp struct {
	Status      string `json:"status"`
	RequestID   string `json:"request_id"`
	Sequence    uint64 `json:"sequence"`
	UPC         string `json:"upc"`
	ReceivedAt  string `json:"received_at"`
	QueueDepth  int    `json:"queue_depth"`
	BacklogSize int    `json:"backlog_size"`
	WorkerCount int    `json:"worker_count"`
}

func setupApp(t *testing.T) (*App, *queue.Manager, context.CancelFunc, http.Handler) {
	t.Helper()
	cfg := config.Load()
	cfg.MaxRegisters = 2
	st := store.New()
	if _, err := st.ReplenishFrom(strings.NewReader(seedCSV)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	q := queue.New(128)
	mgr := queue.NewManager(cfg, q, st)
	ctx, cancel := context.WithCancel(context.Background())
	mgr.Start(ctx)
	app := NewApp(cfg, st, mgr)
	mux := NewRouter(app)
	return app, mgr, func() { cancel(); mgr.Stop() }, mux
}

func do(t *testing.T, h http.Handler, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func drain(t *testing.T, mgr *queue.Manager) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if ok := mgr.DrainUntil(ctx); !ok {
		t.Fatalf("drain timeout")
	}
}

func TestOpenAPIServed(t *testing.T) {
	_, _, cleanup, mux := setupApp(t)
	defer cleanup()
	rr := do(t, mux, http.MethodGet, "/openapi.yaml", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct == "" {
		t.Fatalf("expected content-type set")
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte("openapi:")) {
		t.Fatalf("expected openapi content")
	}
}

func TestDocsServed(t *testing.T) {
	_, _, cleanup, mux := setupApp(t)
	defer cleanup()
	rr := do(t, mux, http.MethodGet, "/docs", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "swagger-ui") {
		t.Fatalf("expected swagger-ui in docs body")
	}
}

func TestHealthzOK(t *testing.T) {
	_, _, cleanup, mux := setupApp(t)
	defer cleanup()
	rr := do(t, mux, http.MethodGet, "/healthz", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestRequestIDEchoedOrGenerated(t *testing.T) {
	_, _, cleanup, mux := setupApp(t)
	defer cleanup()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "given-1")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, "given-1", rr.Header().Get("X-Request-Id"))

	rr = do(t, mux, http.MethodGet, "/healthz", "", "")
	assert.Len(t, rr.Header().Get("X-Request-Id"), 36)
}

func TestMetricsHandler(t *testing.T) {
	_, mgr, cleanup, mux := setupApp(t)
	defer cleanup()
	for i := 0; i < 5; i++ {
		w := do(t, mux, http.MethodPost, "/events", "application/json", `{"upc":"A123","delta":-1}`)
		if w.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", w.Code)
		}
	}
	drain(t, mgr)
	rr := do(t, mux, http.MethodGet, "/debug/metrics", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	m := decode[map[string]any](t, rr)
	for _, k := range []string{"worker_count", "queue_depth", "events_enqueued", "events_processed", "inventory_size", "register_count"} {
		if _, ok := m[k]; !ok {
			t.Fatalf("missing %s", k)
		}
	}
	assert.EqualValues(t, 5, m["events_processed"])
	assert.EqualValues(t, 3, m["inventory_size"])
}

func TestPostEvents_AdjustThenGet(t *testing.T) {
	_, mgr, cleanup, mux := setupApp(t)
	defer cleanup()
	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewBufferString(`{"upc":"B234","delta":5}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", "test-req-1")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rr.Code)
	}
	ac := decode[ackResp](t, rr)
	if ac.RequestID != "test-req-1" || ac.UPC != "B234" || ac.Status != "accepted" || ac.Sequence == 0 {
		t.Fatalf("unexpected ack: %+v", ac)
	}
	drain(t, mgr)

	rr = do(t, mux, http.MethodGet, "/products/B234", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	p := decode[productView](t, rr)
	assert.Equal(t, productView{UPC: "B234", Name: "Peach", WholesalePrice: "0.75", RetailPrice: "1.25", Quantity: 15}, p)
}

func TestPostEvents_Record(t *testing.T) {
	_, mgr, cleanup, mux := setupApp(t)
	defer cleanup()
	body := `{"record":{"upc":"D999","name":"Bread","wholesale_price":"1.005","retail_price":2.5,"quantity":4}}`
	rr := do(t, mux, http.MethodPost, "/events", "application/json", body)
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	assert.Equal(t, "D999", decode[ackResp](t, rr).UPC)
	drain(t, mgr)

	rr = do(t, mux, http.MethodGet, "/products/D999", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	p := decode[productView](t, rr)
	assert.Equal(t, "1.01", p.WholesalePrice)
	assert.Equal(t, "2.50", p.RetailPrice)
	assert.Equal(t, 4, p.Quantity)
}

func TestPostEvents_Validation(t *testing.T) {
	_, _, cleanup, mux := setupApp(t)
	defer cleanup()
	cases := []struct {
		name string
		body string
		code string
	}{
		{"unknown field", `{"upc":"A123","delta":1,"foo":"bar"}`, "invalid_json"},
		{"sequence is server side", `{"upc":"A123","delta":1,"sequence":9}`, "invalid_json"},
		{"missing upc", `{"delta":1}`, "validation_error"},
		{"zero delta", `{"upc":"A123"}`, "validation_error"},
		{"record without name", `{"record":{"upc":"X","wholesale_price":"1","retail_price":"1","quantity":1}}`, "validation_error"},
		{"record upc mismatch", `{"upc":"Y","record":{"upc":"X","name":"n","wholesale_price":"1","retail_price":"1","quantity":1}}`, "validation_error"},
		{"negative price", `{"record":{"upc":"X","name":"n","wholesale_price":"-1","retail_price":"1","quantity":1}}`, "validation_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, mux, http.MethodPost, "/events", "application/json", tc.body)
			require.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, tc.code, decode[jsonError](t, rr).Error)
		})
	}
}

func TestPostEvents_UnsupportedMediaType(t *testing.T) {
	_, _, cleanup, mux := setupApp(t)
	defer cleanup()
	rr := do(t, mux, http.MethodPost, "/events", "text/plain", "{}")
	if rr.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", rr.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	_, _, cleanup, mux := setupApp(t)
	defer cleanup()
	rr := do(t, mux, http.MethodGet, "/events", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestGetProduct_NotFound(t *testing.T) {
	_, _, cleanup, mux := setupApp(t)
	defer cleanup()
	rr := do(t, mux, http.MethodGet, "/products/unknown", "", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestListProductsSorted(t *testing.T) {
	_, _, cleanup, mux := setupApp(t)
	defer cleanup()
	rr := do(t, mux, http.MethodGet, "/products", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	ps := decode[[]productView](t, rr)
	require.Len(t, ps, 3)
	assert.Equal(t, []string{"A123", "B234", "C123"}, []string{ps[0].UPC, ps[1].UPC, ps[2].UPC})
	assert.Equal(t, "4.99", ps[2].RetailPrice)
}

func TestReplenish(t *testing.T) {
	_, _, cleanup, mux := setupApp(t)
	defer cleanup()
	feed := "upc,name,wholesalePrice,retailPrice,quantity\nA123,Green Apple,0.55,1.10,5\nE555,Eggs,1.00,2.00,12\n"
	rr := do(t, mux, http.MethodPost, "/inventory/replenish", "text/csv", feed)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	res := decode[replenishResult](t, rr)
	assert.Equal(t, replenishResult{Merged: 2, InventorySize: 4}, res)

	p := decode[productView](t, do(t, mux, http.MethodGet, "/products/A123", "", ""))
	assert.Equal(t, productView{UPC: "A123", Name: "Green Apple", WholesalePrice: "0.55", RetailPrice: "1.10", Quantity: 105}, p)
}

func TestReplenish_ParseErrorKeepsEarlierRecords(t *testing.T) {
	_, _, cleanup, mux := setupApp(t)
	defer cleanup()
	feed := "upc,name,wholesalePrice,retailPrice,quantity\nE555,Eggs,1.00,2.00,12\nF1,Flour,abc,2.00,1\n"
	rr := do(t, mux, http.MethodPost, "/inventory/replenish", "text/csv", feed)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	e := decode[jsonError](t, rr)
	assert.Equal(t, "parse_error", e.Error)
	assert.Equal(t, 3, e.Line)
	assert.Equal(t, "wholesalePrice", e.Field)

	rr = do(t, mux, http.MethodGet, "/products/E555", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestReplenish_BadHeaderAndMediaType(t *testing.T) {
	_, _, cleanup, mux := setupApp(t)
	defer cleanup()
	rr := do(t, mux, http.MethodPost, "/inventory/replenish", "text/csv", "upc,name\n")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, 1, decode[jsonError](t, rr).Line)

	rr = do(t, mux, http.MethodPost, "/inventory/replenish", "application/json", "{}")
	assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
}

func TestRegisterCheckoutFlow(t *testing.T) {
	_, _, cleanup, mux := setupApp(t)
	defer cleanup()

	rr := do(t, mux, http.MethodPost, "/registers/1/begin", "", "")
	require.Equal(t, http.StatusCreated, rr.Code)
	tv := decode[transactionView](t, rr)
	assert.Equal(t, "STARTED", tv.State)
	assert.Equal(t, "0.00", tv.Total)
	assert.Empty(t, tv.LineItems)

	rr = do(t, mux, http.MethodPost, "/registers/1/begin", "", "")
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "invalid_state", decode[jsonError](t, rr).Error)

	for _, upc := range []string{"A123", "A123", "C123"} {
		rr = do(t, mux, http.MethodPost, "/registers/1/scan", "application/json", `{"upc":"`+upc+`"}`)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.True(t, decode[scanResponse](t, rr).InStock)
	}
	rr = do(t, mux, http.MethodPost, "/registers/1/scan", "application/json", `{"upc":"nope"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	sr := decode[scanResponse](t, rr)
	assert.Equal(t, scanResponse{InStock: false, Count: 3, Total: "6.99"}, sr)

	rr = do(t, mux, http.MethodGet, "/registers/1/receipt", "", "")
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, mux, http.MethodPost, "/registers/1/pay", "application/json", `{"amount":"5.00"}`)
	require.Equal(t, http.StatusPaymentRequired, rr.Code)
	assert.Equal(t, "insufficient_funds", decode[jsonError](t, rr).Error)

	rr = do(t, mux, http.MethodPost, "/registers/1/pay", "application/json", `{"amount":"10"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	pr := decode[payResponse](t, rr)
	assert.Equal(t, "6.99", pr.Total)
	assert.Equal(t, "10.00", pr.Paid)
	assert.Equal(t, "3.01", pr.Change)

	rr = do(t, mux, http.MethodPost, "/registers/1/pay", "application/json", `{"amount":"10"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, mux, http.MethodGet, "/registers/1/transaction", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	tv = decode[transactionView](t, rr)
	assert.Equal(t, "PAID", tv.State)
	require.Len(t, tv.LineItems, 2)
	assert.Equal(t, lineItemView{UPC: "A123", Name: "Apple", UnitPrice: "1.00", Quantity: 2, ExtendedPrice: "2.00"}, tv.LineItems[0])

	rr = do(t, mux, http.MethodGet, "/registers/1/receipt", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rr.Header().Get("Content-Type"))
	want := strings.Join([]string{
		"BridgePhase Convenience Store",
		"-----------------------------",
		"Total Products Bought: 3",
		"",
		"2 Apple @ $1.00: $2.00",
		"1 Milk @ $4.99: $4.99",
		"-----------------------------",
		"Total: $6.99",
		"Paid: $10.00",
		"Change: $3.01",
		"-----------------------------",
		"",
	}, "\n")
	assert.Equal(t, want, rr.Body.String())

	a := decode[productView](t, do(t, mux, http.MethodGet, "/products/A123", "", ""))
	assert.Equal(t, 98, a.Quantity)
	c := decode[productView](t, do(t, mux, http.MethodGet, "/products/C123", "", ""))
	assert.Equal(t, 1, c.Quantity)

	rr = do(t, mux, http.MethodPost, "/registers/1/begin", "", "")
	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestRegisterErrors(t *testing.T) {
	_, _, cleanup, mux := setupApp(t)
	defer cleanup()

	rr := do(t, mux, http.MethodPost, "/registers/9/scan", "application/json", `{"upc":"A123"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = do(t, mux, http.MethodGet, "/registers/9/transaction", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	require.Equal(t, http.StatusCreated, do(t, mux, http.MethodPost, "/registers/9/begin", "", "").Code)
	rr = do(t, mux, http.MethodPost, "/registers/9/scan", "application/json", `{"upc":""}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid_argument", decode[jsonError](t, rr).Error)

	rr = do(t, mux, http.MethodPost, "/registers/9/pay", "application/json", `{}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid_argument", decode[jsonError](t, rr).Error)

	rr = do(t, mux, http.MethodPost, "/registers/9/pay", "application/json", `{"amount":null}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid_argument", decode[jsonError](t, rr).Error)

	rr = do(t, mux, http.MethodPost, "/registers/9/pay", "application/json", `{"amount":"-1"}`)
	require.Equal(t, http.StatusPaymentRequired, rr.Code)
	assert.Equal(t, "insufficient_funds", decode[jsonError](t, rr).Error)

	require.Equal(t, http.StatusOK, do(t, mux, http.MethodPost, "/registers/9/scan", "application/json", `{"upc":"C123"}`).Code)
	rr = do(t, mux, http.MethodPost, "/registers/9/pay", "application/json", `{"amount":4.985}`)
	require.Equal(t, http.StatusPaymentRequired, rr.Code)
	rr = do(t, mux, http.MethodPost, "/registers/9/pay", "application/json", `{"amount":"4.995"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	pr := decode[payResponse](t, rr)
	assert.Equal(t, "5.00", pr.Paid)
	assert.Equal(t, "0.01", pr.Change)

	rr = do(t, mux, http.MethodPost, "/registers/9/pay", "text/plain", `{"amount":"1"}`)
	assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)

	// MaxRegisters is 2 in setupApp.
	require.Equal(t, http.StatusCreated, do(t, mux, http.MethodPost, "/registers/10/begin", "", "").Code)
	rr = do(t, mux, http.MethodPost, "/registers/11/begin", "", "")
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "register_limit_reached", decode[jsonError](t, rr).Error)
}

func TestRegistersRunInParallel(t *testing.T) {
	_, _, cleanup, mux := setupApp(t)
	defer cleanup()
	done := make(chan struct{})
	for _, id := range []string{"1", "2"} {
		go func(id string) {
			defer func() { done <- struct{}{} }()
			do(t, mux, http.MethodPost, "/registers/"+id+"/begin", "", "")
			for i := 0; i < 10; i++ {
				do(t, mux, http.MethodPost, "/registers/"+id+"/scan", "application/json", `{"upc":"A123"}`)
			}
			do(t, mux, http.MethodPost, "/registers/"+id+"/pay", "application/json", `{"amount":"100"}`)
		}(id)
	}
	<-done
	<-done
	p := decode[productView](t, do(t, mux, http.MethodGet, "/products/A123", "", ""))
	assert.Equal(t, 80, p.Quantity)
}

func TestShutdownBehavior(t *testing.T) {
	app, _, cleanup, mux := setupApp(t)
	defer cleanup()
	app.StartShutdown()
	rr := do(t, mux, http.MethodPost, "/events", "application/json", `{"upc":"A123","delta":1}`)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	rr = do(t, mux, http.MethodPost, "/registers/1/begin", "", "")
	assert.Equal(t, http.StatusCreated, rr.Code)
}
