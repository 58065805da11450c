package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
)

// EmailEnqueuer is the subset of Dispatcher used by workers that fan out
// into email jobs.
type EmailEnqueuer interface {
	EnqueueEmail(ctx context.Context, payload EmailJobPayload) error
}

// StockBajoWorker logs low-stock alerts and, when a notification address is
// configured, turns them into email jobs.
type StockBajoWorker struct {
	emails      EmailEnqueuer
	notifyEmail string
}

func NewStockBajoWorker(emails EmailEnqueuer, notifyEmail string) *StockBajoWorker {
	return &StockBajoWorker{emails: emails, notifyEmail: notifyEmail}
}

func (w *StockBajoWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var p StockBajoPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Error().Err(err).Msg("stock_bajo_worker: invalid payload")
		return nil
	}

	log.Warn().
		Str("usuario_id", p.UsuarioID).
		Str("producto_id", p.ProductoID).
		Str("producto", p.Producto).
		Int("stock", p.Stock).
		Int("cantidad_minima", p.CantidadMinima).
		Msg("stock bajo el mínimo")

	if w.notifyEmail == "" {
		return nil
	}
	return w.emails.EnqueueEmail(ctx, EmailJobPayload{
		ToEmail: w.notifyEmail,
		Subject: fmt.Sprintf("Stock bajo: %s", p.Producto),
		Body: fmt.Sprintf("El producto %s quedó con %d unidades (mínimo %d).",
			p.Producto, p.Stock, p.CantidadMinima),
	})
}
