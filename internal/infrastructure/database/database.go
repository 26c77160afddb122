package database

import (
	"fundgate-backend/internal/domain"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open opens a GORM DB from DSN (Postgres pooler URL).
// PreferSimpleProtocol disables prepared statement caching to avoid 42P05
// ("prepared statement already exists") behind PgBouncer-style poolers.
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{TranslateError: true})
}

// Models lists every table owned by the service, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&domain.Fund{},
		&domain.FundAggregate{},
		&domain.Investor{},
		&domain.AccreditationCertification{},
		&domain.BankLink{},
		&domain.InvestorStageTransition{},
		&domain.KycProviderEvent{},
		&domain.Investment{},
		&domain.Transaction{},
		&domain.TransactionEvent{},
		&domain.AuditLog{},
	}
}

// AutoMigrate runs migrations for all service tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
