package pets

import (
	"testing"
	"time"

	"tiertrainer-backend/internal/domain/subscribers"
	"tiertrainer-backend/internal/domain/users"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&users.User{}, &Profile{}))
	for _, email := range []string{"anna@example.com", "ben@example.com"} {
		require.NoError(t, db.Create(&users.User{Email: email, AuthProvider: users.ProviderLocal}).Error)
	}
	return db
}

func TestCreateEnforcesLimit(t *testing.T) {
	db := setupTestDB(t)
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	two := 2
	premium := &subscribers.Subscriber{Subscribed: true, SubscriptionStatus: subscribers.StatusActive, TierLimit: &two}

	for i := 0; i < 2; i++ {
		limit, err := Create(db, now, premium, &Profile{UserID: 1, Name: "Bello"})
		require.NoError(t, err)
		assert.Equal(t, 2, limit)
	}
	_, err := Create(db, now, premium, &Profile{UserID: 1, Name: "Luna"})
	assert.ErrorIs(t, err, ErrPetLimitReached)

	// limits are per owner
	_, err = Create(db, now, nil, &Profile{UserID: 2, Name: "Rex"})
	require.NoError(t, err)
	_, err = Create(db, now, nil, &Profile{UserID: 2, Name: "Max"})
	assert.ErrorIs(t, err, ErrPetLimitReached)
}

func TestFindOwned(t *testing.T) {
	db := setupTestDB(t)
	p := Profile{UserID: 1, Name: "Bello"}
	require.NoError(t, db.Create(&p).Error)

	got, err := FindOwned(db, 1, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bello", got.Name)

	_, err = FindOwned(db, 2, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateLocksOwnerRow(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT "id" FROM "users" WHERE "users"."id" = \$1 .* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "pet_profiles"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	_, err = Create(db, time.Now(), nil, &Profile{UserID: 1, Name: "Rex"})
	assert.ErrorIs(t, err, ErrPetLimitReached)
	assert.NoError(t, mock.ExpectationsWereMet())
}
