package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/velorek/notiq/internal/repository"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "000001_create_notification_jobs",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.JobModel{}); err != nil {
					return err
				}
				indexes := []string{
					// Poll query: due, non-exhausted jobs in creation order.
					`CREATE INDEX IF NOT EXISTS idx_jobs_due ON notification_jobs (next_run_at, created_at) WHERE attempt_count < max_attempts`,
					`CREATE INDEX IF NOT EXISTS idx_jobs_attempt_count ON notification_jobs (attempt_count)`,
					`CREATE INDEX IF NOT EXISTS idx_jobs_recipient ON notification_jobs (recipient)`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.JobModel{})
			},
		},
		{
			ID: "000002_create_audit_records",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&repository.AuditModel{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.AuditModel{})
			},
		},
		{
			ID: "000003_create_idempotency_keys",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.IdempotencyModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_idempotency_expires_at ON idempotency_keys (expires_at)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.IdempotencyModel{})
			},
		},
	})

	return m.Migrate()
}
