package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"puntoventa/internal/infra"
	"puntoventa/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SesionReader loads a closed session and its cash movements.
// repository.CajaRepository satisfies it.
type SesionReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error)
	ListMovimientos(ctx context.Context, sesionCajaID uuid.UUID) ([]model.MovimientoCaja, error)
}

// CajaCerradaWorker renders the closing report PDF of a session into
// storagePath and mails it to notifyEmail when one is configured.
type CajaCerradaWorker struct {
	sesiones    SesionReader
	emails      EmailEnqueuer
	storagePath string
	notifyEmail string
}

func NewCajaCerradaWorker(sesiones SesionReader, emails EmailEnqueuer, storagePath, notifyEmail string) *CajaCerradaWorker {
	return &CajaCerradaWorker{
		sesiones:    sesiones,
		emails:      emails,
		storagePath: storagePath,
		notifyEmail: notifyEmail,
	}
}

func (w *CajaCerradaWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var p CajaCerradaPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Error().Err(err).Msg("caja_cerrada_worker: invalid payload")
		return nil
	}
	sesionID, err := uuid.Parse(p.SesionCajaID)
	if err != nil {
		log.Error().Str("sesion_caja_id", p.SesionCajaID).Msg("caja_cerrada_worker: invalid session id")
		return nil
	}

	sesion, err := w.sesiones.FindByID(ctx, sesionID)
	if err != nil {
		return fmt.Errorf("caja_cerrada_worker: load session: %w", err)
	}
	movs, err := w.sesiones.ListMovimientos(ctx, sesionID)
	if err != nil {
		return fmt.Errorf("caja_cerrada_worker: load movements: %w", err)
	}

	path, err := infra.GenerateCierrePDF(sesion, movs, w.storagePath)
	if err != nil {
		return err
	}
	log.Info().Str("sesion_caja_id", p.SesionCajaID).Str("pdf", path).Msg("caja_cerrada_worker: closing report generated")

	if w.notifyEmail == "" {
		return nil
	}
	return w.emails.EnqueueEmail(ctx, EmailJobPayload{
		ToEmail: w.notifyEmail,
		Subject: "Cierre de caja " + sesion.FechaApertura.Format("02/01/2006"),
		Body:    "Se adjunta el reporte de cierre de caja.",
		PDFPath: path,
	})
}
