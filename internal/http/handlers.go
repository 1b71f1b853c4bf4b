package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fairyhunter13/pos-register-simulator/internal/config"
	httpopenapi "github.com/fairyhunter13/pos-register-simulator/internal/http/openapi"
	"github.com/fairyhunter13/pos-register-simulator/internal/model"
	"github.com/fairyhunter13/pos-register-simulator/internal/obs"
	"github.com/fairyhunter13/pos-register-simulator/internal/queue"
	"github.com/fairyhunter13/pos-register-simulator/internal/receipt"
	"github.com/fairyhunter13/pos-register-simulator/internal/store"
	"go.uber.org/zap"
)

// App wires the inventory, the stock event pipeline and the registers to
// HTTP handlers.
type App struct {
	Cfg       config.Config
	Inventory *store.Inventory
	Manager   *queue.Manager
	Printer   *receipt.Printer

	registers *lanes
	closing   atomic.Bool
	started   time.Time
}

type ack struct {
	Status      string `json:"status"`
	RequestID   string `json:"request_id"`
	Sequence    uint64 `json:"sequence"`
	UPC         string `json:"upc"`
	ReceivedAt  string `json:"received_at"`
	QueueDepth  int    `json:"queue_depth"`
	BacklogSize int    `json:"backlog_size"`
	WorkerCount int    `json:"worker_count"`
}

func NewApp(cfg config.Config, inv *store.Inventory, m *queue.Manager) *App {
	return &App{
		Cfg:       cfg,
		Inventory: inv,
		Manager:   m,
		Printer:   receipt.NewPrinter(cfg.StoreName, cfg.CurrencySymbol),
		registers: newLanes(inv, cfg.MaxRegisters),
		started:   time.Now(),
	}
}

// StartShutdown stops accepting stock events. Registers keep working so
// in-flight sales can finish.
func (a *App) StartShutdown() {
	a.closing.Store(true)
	a.Manager.CloseIntake()
}

func hasContentType(r *http.Request, want string) bool {
	return strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), want)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func validateEvent(ev model.StockEvent) string {
	if ev.Record == nil {
		if ev.UPC == "" {
			return "upc is required"
		}
		if ev.Delta == 0 {
			return "delta must be non-zero"
		}
		return ""
	}
	rec := ev.Record
	switch {
	case rec.UPC == "":
		return "record.upc is required"
	case rec.Name == "":
		return "record.name is required"
	case ev.UPC != "" && ev.UPC != rec.UPC:
		return "upc does not match record.upc"
	case ev.Delta != 0:
		return "delta cannot be combined with record"
	case rec.WholesalePrice.IsNegative() || rec.RetailPrice.IsNegative():
		return "prices must be >= 0"
	}
	return ""
}

func (a *App) postEventsHandler(w http.ResponseWriter, r *http.Request) {
	if a.closing.Load() || a.Manager.IsShuttingDown() {
		WriteJSONError(w, http.StatusServiceUnavailable, "shutting_down", "")
		return
	}
	if !hasContentType(r, "application/json") {
		WriteJSONError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "expected application/json")
		return
	}
	var ev model.StockEvent
	if err := decodeJSON(r, &ev); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if msg := validateEvent(ev); msg != "" {
		WriteJSONError(w, http.StatusBadRequest, "validation_error", msg)
		return
	}
	if ev.IsReplenishment() {
		ev.UPC = ev.Record.UPC
	}
	seq, ok := a.Manager.Enqueue(ev)
	if !ok {
		WriteJSONError(w, http.StatusServiceUnavailable, "shutting_down", "")
		return
	}
	ac := ack{
		Status:      "accepted",
		RequestID:   RequestIDFromContext(r.Context()),
		Sequence:    seq,
		UPC:         ev.UPC,
		ReceivedAt:  time.Now().UTC().Format(time.RFC3339),
		QueueDepth:  a.Manager.QueueDepth(),
		BacklogSize: a.Manager.BacklogSize(),
		WorkerCount: a.Manager.WorkerCount(),
	}
	writeJSON(w, http.StatusAccepted, ac)
	obs.Logger.Info("event_accepted",
		zap.String("request_id", ac.RequestID),
		zap.Uint64("sequence", ac.Sequence),
		zap.String("upc", ac.UPC),
		zap.Bool("replenishment", ev.IsReplenishment()),
		zap.Int("queue_depth", ac.QueueDepth),
		zap.Int("backlog_size", ac.BacklogSize),
		zap.Int("worker_count", ac.WorkerCount),
	)
}

func (a *App) listProductsHandler(w http.ResponseWriter, r *http.Request) {
	entries := a.Inventory.List()
	out := make([]productView, 0, len(entries))
	for _, e := range entries {
		out = append(out, newProductView(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *App) getProductHandler(w http.ResponseWriter, r *http.Request) {
	upc := r.PathValue("upc")
	if upc == "" {
		WriteJSONError(w, http.StatusNotFound, "not_found", "")
		return
	}
	e, ok := a.Inventory.Find(upc)
	if !ok {
		WriteJSONError(w, http.StatusNotFound, "not_found", "")
		return
	}
	writeJSON(w, http.StatusOK, newProductView(e))
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) metricsHandler(w http.ResponseWriter, r *http.Request) {
	type metrics struct {
		queue.Stats
		WorkerCount   int     `json:"worker_count"`
		InventorySize int     `json:"inventory_size"`
		Registers     int     `json:"register_count"`
		UptimeSec     float64 `json:"uptime_sec"`
	}
	writeJSON(w, http.StatusOK, metrics{
		Stats:         a.Manager.Stats(),
		WorkerCount:   a.Manager.WorkerCount(),
		InventorySize: a.Inventory.Len(),
		Registers:     a.registers.len(),
		UptimeSec:     time.Since(a.started).Seconds(),
	})
}

func (a *App) openapiHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(httpopenapi.YAML)
}

const docsPage = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>POS Simulator API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui'
      });
    </script>
  </body>
</html>`

func (a *App) docsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(docsPage))
}
