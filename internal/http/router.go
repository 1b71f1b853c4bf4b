package httpapi

import (
	"expvar"
	"net/http"
)

// NewRouter registers HTTP routes and returns the handler with middleware.
func NewRouter(app *App) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /inventory/replenish", app.replenishHandler)
	mux.HandleFunc("POST /events", app.postEventsHandler)
	mux.HandleFunc("GET /products", app.listProductsHandler)
	mux.HandleFunc("GET /products/{upc}", app.getProductHandler)

	mux.HandleFunc("POST /registers/{id}/begin", app.beginHandler)
	mux.HandleFunc("POST /registers/{id}/scan", app.scanHandler)
	mux.HandleFunc("POST /registers/{id}/pay", app.payHandler)
	mux.HandleFunc("GET /registers/{id}/transaction", app.transactionHandler)
	mux.HandleFunc("GET /registers/{id}/receipt", app.receiptHandler)

	mux.HandleFunc("GET /healthz", app.healthHandler)
	mux.HandleFunc("GET /debug/metrics", app.metricsHandler)
	mux.Handle("GET /debug/vars", expvar.Handler())
	mux.HandleFunc("GET /openapi.yaml", app.openapiHandler)
	mux.HandleFunc("GET /docs", app.docsHandler)
	return WithRequestID(WithLogging(mux))
}
