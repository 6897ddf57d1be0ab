package store

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"trade-journal-go/internal/database"
	"trade-journal-go/internal/models"
)

// setupDB opens a private in-memory sqlite database with the journal schema.
func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Every connection to "file::memory:" gets its own database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

func newTrade(id, token string, dir models.Direction, qty, value float64, ts int64) models.Trade {
	q := decimal.NewFromFloat(qty)
	v := decimal.NewFromFloat(value)
	return models.Trade{
		Identifier:    id,
		WalletAddress: "Wallet1",
		TokenAddress:  token,
		Direction:     dir,
		Quantity:      q,
		Value:         v,
		UnitPrice:     v.Div(q),
		Timestamp:     ts,
	}
}
