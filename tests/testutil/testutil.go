package testutil

import (
	"os"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tailorbook/tailorbook-api/models"
)

// RequireTestEnvironment ensures that tests are running in the test environment.
// This prevents accidental execution of tests against production or development databases.
// It will fail the test immediately if GO_ENV is not set to "test".
func RequireTestEnvironment(t *testing.T) {
	t.Helper()

	env := os.Getenv("GO_ENV")
	if env != "test" {
		t.Fatalf("SAFETY CHECK FAILED: Tests must run with GO_ENV=test to prevent data loss. Current GO_ENV=%q. Set GO_ENV=test before running tests.", env)
	}
}

// MustSetTestEnvironment sets GO_ENV to test and fails if it cannot be set.
// Use this in TestMain or suite setup functions.
func MustSetTestEnvironment(t *testing.T) {
	t.Helper()

	if err := os.Setenv("GO_ENV", "test"); err != nil {
		t.Fatalf("Failed to set GO_ENV=test: %v", err)
	}
}

// SetupTestDB opens an in-memory database with the full schema migrated
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Customer{}, &models.MeasurementSet{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

// CleanupTables removes all rows so suites can reuse one database across tests
func CleanupTables(t *testing.T, db *gorm.DB) {
	t.Helper()

	// Order matters with foreign keys enabled
	for _, table := range []string{"measurement_sets", "customers", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			t.Fatalf("Failed to clean up table %s: %v", table, err)
		}
	}
}

// SeedUser inserts a shop user with a hashed password
func SeedUser(t *testing.T, db *gorm.DB, name, email, password string) *models.User {
	t.Helper()

	user := &models.User{Name: name, Email: email}
	if err := user.SetPassword(password); err != nil {
		t.Fatalf("Failed to hash seed password: %v", err)
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}

	return user
}

// SeedCustomer inserts a customer owned by the given user
func SeedCustomer(t *testing.T, db *gorm.DB, userID uint, name, nic, contact string) *models.Customer {
	t.Helper()

	customer := &models.Customer{Name: name, NIC: nic, Contact: contact, UserID: userID}
	if err := db.Create(customer).Error; err != nil {
		t.Fatalf("Failed to seed customer: %v", err)
	}

	return customer
}

// SeedMeasurementSet inserts a measurement set with the given opaque payload.
// Statuses fall back to the column defaults.
func SeedMeasurementSet(t *testing.T, db *gorm.DB, customerID uint, measurements string) *models.MeasurementSet {
	t.Helper()

	set := &models.MeasurementSet{
		CustomerID:   customerID,
		Date:         time.Now(),
		Measurements: measurements,
	}
	if err := db.Create(set).Error; err != nil {
		t.Fatalf("Failed to seed measurement set: %v", err)
	}

	return set
}
