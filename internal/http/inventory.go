package httpapi

import (
	"net/http"

	"github.com/fairyhunter13/pos-register-simulator/internal/obs"
	"go.uber.org/zap"
)

const maxReplenishBody = 10 << 20

type replenishResult struct {
	Merged        int `json:"merged"`
	InventorySize int `json:"inventory_size"`
}

// replenishHandler merges a CSV feed synchronously. Records before a parse
// error stay merged; the error reports the offending line and field.
func (a *App) replenishHandler(w http.ResponseWriter, r *http.Request) {
	if !hasContentType(r, "text/csv") {
		WriteJSONError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "expected text/csv")
		return
	}
	body := http.MaxBytesReader(w, r.Body, maxReplenishBody)
	n, err := a.Inventory.ReplenishFrom(body)
	if err != nil {
		obs.Logger.Warn("replenish_failed",
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.Int("merged", n),
			zap.Error(err),
		)
		writeDomainError(w, err)
		return
	}
	obs.Logger.Info("inventory_replenished",
		zap.String("request_id", RequestIDFromContext(r.Context())),
		zap.Int("merged", n),
		zap.Int("inventory_size", a.Inventory.Len()),
	)
	writeJSON(w, http.StatusOK, replenishResult{Merged: n, InventorySize: a.Inventory.Len()})
}
