package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"odysseum/internal/logger"
)

type account struct {
	ID    int64  `gorm:"primaryKey"`
	Email string `gorm:"uniqueIndex"`
}

func TestConnect_SQLiteMemory(t *testing.T) {
	db, err := Connect(":memory:", logger.Discard())
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&account{}))

	require.NoError(t, db.Create(&account{Email: "a@example.com"}).Error)
	err = db.Create(&account{Email: "a@example.com"}).Error
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))

	var p account
	err = db.Where("email = ?", "missing@example.com").First(&p).Error
	assert.True(t, IsNotFound(err))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("connection refused")))
}
