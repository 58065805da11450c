package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueAlertas = "jobs:alertas"
	QueueCaja    = "jobs:caja"
	QueueEmail   = "jobs:email"

	JobStockBajo   = "stock_bajo"
	JobCajaCerrada = "caja_cerrada"
	JobEmail       = "email"

	maxAttempts = 3
)

// retryBaseDelay is the first backoff step; later attempts double it.
var retryBaseDelay = time.Second

// popBackoffMin and popBackoffMax bound the pause after a failed BRPOP.
var (
	popBackoffMin = 500 * time.Millisecond
	popBackoffMax = 30 * time.Second
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// StockBajoPayload is enqueued after a committed stock change leaves a
// product below its minimum.
type StockBajoPayload struct {
	UsuarioID      string `json:"usuario_id"`
	ProductoID     string `json:"producto_id"`
	Producto       string `json:"producto"`
	Stock          int    `json:"stock"`
	CantidadMinima int    `json:"cantidad_minima"`
}

// CajaCerradaPayload is enqueued after a register session is closed.
type CajaCerradaPayload struct {
	SesionCajaID string `json:"sesion_caja_id"`
	UsuarioID    string `json:"usuario_id"`
}

// EmailJobPayload is the job envelope sent to QueueEmail.
type EmailJobPayload struct {
	ToEmail string `json:"to_email"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	PDFPath string `json:"pdf_path,omitempty"`
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueStockBajo pushes a low-stock alert job to Redis.
func (d *Dispatcher) EnqueueStockBajo(ctx context.Context, payload StockBajoPayload) error {
	return d.enqueue(ctx, QueueAlertas, JobStockBajo, payload)
}

// EnqueueCajaCerrada pushes a closing-report job to Redis.
func (d *Dispatcher) EnqueueCajaCerrada(ctx context.Context, payload CajaCerradaPayload) error {
	return d.enqueue(ctx, QueueCaja, JobCajaCerrada, payload)
}

// EnqueueEmail pushes an email job to Redis.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload EmailJobPayload) error {
	return d.enqueue(ctx, QueueEmail, JobEmail, payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	encoded, err := encodeJob(jobType, payload)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

func encodeJob(jobType string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Job{Type: jobType, Payload: data})
}

// JobHandler processes one job payload. A returned error triggers a retry
// and, once attempts are exhausted, a move to the dead letter queue.
type JobHandler interface {
	Process(ctx context.Context, raw json.RawMessage) error
}

// WorkerHandlers groups the handlers wired at the composition root.
type WorkerHandlers struct {
	StockBajo   JobHandler
	CajaCerrada JobHandler
	Email       JobHandler
}

func (h *WorkerHandlers) forType(jobType string) JobHandler {
	switch jobType {
	case JobStockBajo:
		return h.StockBajo
	case JobCajaCerrada:
		return h.CajaCerrada
	case JobEmail:
		return h.Email
	}
	return nil
}

// StartWorkerPool launches numWorkers goroutines consuming all queues.
// Each goroutine blocks on BRPOP, zero CPU when idle.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, handlers, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, rdb redis.Cmdable, handlers *WorkerHandlers, id int) {
	queues := []string{QueueCaja, QueueAlertas, QueueEmail}
	var backoff time.Duration
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop: waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) || ctx.Err() != nil {
					continue
				}
				backoff = nextPopBackoff(backoff)
				log.Warn().Err(err).Int("worker", id).Dur("backoff", backoff).Msg("BRPOP failed, retrying")
				select {
				case <-ctx.Done():
				case <-time.After(backoff):
				}
				continue
			}
			backoff = 0
			if len(result) < 2 {
				continue
			}
			job, attempts, err := processJob(ctx, handlers, result[1])
			if err != nil {
				SendToDLQ(ctx, rdb, result[0], job.Type, job.Payload, err.Error(), attempts)
			}
		}
	}
}

// nextPopBackoff doubles the previous pause, starting at popBackoffMin and
// capped at popBackoffMax.
func nextPopBackoff(prev time.Duration) time.Duration {
	if prev <= 0 {
		return popBackoffMin
	}
	next := prev * 2
	if next > popBackoffMax {
		return popBackoffMax
	}
	return next
}

// processJob decodes raw and runs its handler with retries. It returns the
// decoded job, the number of attempts made and the last error, if any.
func processJob(ctx context.Context, handlers *WorkerHandlers, raw string) (Job, int, error) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return Job{Type: "desconocido", Payload: json.RawMessage(raw)}, 0, fmt.Errorf("unmarshal job: %w", err)
	}
	h := handlers.forType(job.Type)
	if h == nil {
		return job, 0, fmt.Errorf("no handler for job type %q", job.Type)
	}

	attempts := 0
	err := withRetry(ctx, maxAttempts, func(attempt int) error {
		attempts = attempt + 1
		err := h.Process(ctx, job.Payload)
		if err != nil {
			log.Warn().Err(err).Str("type", job.Type).Int("attempt", attempts).Msg("job attempt failed")
		}
		return err
	})
	if err == nil {
		log.Debug().Str("type", job.Type).Int("attempts", attempts).Msg("job processed")
	}
	return job, attempts, err
}

// withRetry calls fn up to maxAttempts times with exponential backoff.
// Backoff schedule: attempt 1 = immediate, 2 = base, 3 = 2×base.
// Returns nil if any attempt succeeds; last error otherwise.
func withRetry(ctx context.Context, maxAttempts int, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			wait := time.Duration(1<<uint(i-1)) * retryBaseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := fn(i); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}
