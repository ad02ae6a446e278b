package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"blogapi/common"
	"blogapi/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := common.ConnectDb(common.Config{DBDriver: "sqlite", SQLitePath: ":memory:"})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = common.CloseDb(db) })

	require.NoError(t, RunMigrations(db))
	return db
}

func count[T any](t *testing.T, db *gorm.DB) int64 {
	var n int64
	require.NoError(t, db.Model(new(T)).Count(&n).Error)
	return n
}

func TestSeed_IsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	opts := SeedOptions{
		BcryptCost:    bcrypt.MinCost,
		AdminEmail:    "admin@example.com",
		AdminPassword: "supersecret",
		Demo:          true,
	}

	require.NoError(t, Seed(db, opts))
	require.NoError(t, Seed(db, opts))

	assert.Equal(t, int64(2), count[models.Role](t, db))
	assert.Equal(t, int64(3), count[models.User](t, db))
	assert.Equal(t, int64(2), count[models.Post](t, db))
	assert.Equal(t, int64(2), count[models.Comment](t, db))

	var admin models.User
	require.NoError(t, db.Preload("Role").Where("email = ?", "admin@example.com").First(&admin).Error)
	assert.Equal(t, models.RoleAdmin, admin.Role.Name)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("supersecret")))
}

func TestSeed_RolesOnly(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, Seed(db, SeedOptions{BcryptCost: bcrypt.MinCost}))

	var names []string
	require.NoError(t, db.Model(&models.Role{}).Order("name").Pluck("name", &names).Error)
	assert.Equal(t, []string{models.RoleAdmin, models.RoleUser}, names)
	assert.Zero(t, count[models.User](t, db))
}

func TestConnectDb_UnknownDriver(t *testing.T) {
	_, err := common.ConnectDb(common.Config{DBDriver: "oracle"})
	assert.Error(t, err)

	_, err = common.ConnectDb(common.Config{DBDriver: "postgres"})
	assert.ErrorContains(t, err, "DATABASE_URL")
}
