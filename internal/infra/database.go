package infra

import (
	"fmt"
	"time"

	"puntoventa/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx and migrates the
// schema. TranslateError is on so unique and foreign-key violations surface
// as gorm.ErrDuplicatedKey / gorm.ErrForeignKeyViolated.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates / updates all tables, then applies the constraints
// GORM tags cannot express. Safe to run on every start.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Categoria{},
		&model.Producto{},
		&model.Inventario{},
		&model.MovimientoStock{},
		&model.SesionCaja{},
		&model.MovimientoCaja{},
		&model.Pedido{},
		&model.DetallePedido{},
		&model.PagoPedido{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}

// applySchemaPatches runs idempotent DDL: each statement is guarded by an
// existence check so re-running on an already-patched schema is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		{
			// At most one open register session per operator.
			"partial unique index sesiones_caja(usuario_id) WHERE abierta",
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_sesiones_caja_una_abierta
			    ON sesiones_caja (usuario_id) WHERE estado = 'abierta'`,
		},
		{
			// Product names are unique per operator, ignoring case.
			"unique index productos(usuario_id, lower(nombre))",
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_productos_usuario_nombre
			    ON productos (usuario_id, lower(nombre))`,
		},
		{
			"check sesiones_caja.estado",
			`DO $$ BEGIN
			  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_sesiones_caja_estado') THEN
			    ALTER TABLE sesiones_caja ADD CONSTRAINT chk_sesiones_caja_estado
			        CHECK (estado IN ('abierta', 'cerrada'));
			  END IF;
			END $$`,
		},
		{
			"check inventarios.stock >= 0",
			`DO $$ BEGIN
			  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_inventarios_stock_no_negativo') THEN
			    ALTER TABLE inventarios ADD CONSTRAINT chk_inventarios_stock_no_negativo CHECK (stock >= 0);
			  END IF;
			END $$`,
		},
		{
			"check movimientos_caja.monto > 0",
			`DO $$ BEGIN
			  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_movimientos_caja_monto') THEN
			    ALTER TABLE movimientos_caja ADD CONSTRAINT chk_movimientos_caja_monto
			        CHECK (monto > 0 AND tipo IN ('ingreso', 'retiro'));
			  END IF;
			END $$`,
		},
		{
			"check detalles_pedido.cantidad > 0",
			`DO $$ BEGIN
			  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_detalles_pedido_cantidad') THEN
			    ALTER TABLE detalles_pedido ADD CONSTRAINT chk_detalles_pedido_cantidad CHECK (cantidad > 0);
			  END IF;
			END $$`,
		},
		{
			"index pedidos(sesion_caja_id, fecha)",
			`CREATE INDEX IF NOT EXISTS idx_pedidos_sesion_fecha ON pedidos (sesion_caja_id, fecha)`,
		},
	}

	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
