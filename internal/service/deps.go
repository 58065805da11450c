package service

import (
	"context"
	"time"

	"puntoventa/internal/worker"
)

// JobDispatcher receives post-commit events. *worker.Dispatcher satisfies
// it; a nil JobDispatcher disables them.
type JobDispatcher interface {
	EnqueueStockBajo(ctx context.Context, payload worker.StockBajoPayload) error
	EnqueueCajaCerrada(ctx context.Context, payload worker.CajaCerradaPayload) error
}

// Clock returns the current time. Services default to time.Now in UTC.
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }
