package evaluation

import (
	"testing"

	"gorm.io/gorm"

	"github.com/draphael123/Evaluation-Tracker/logger"
	"github.com/draphael123/Evaluation-Tracker/testutil"
)

// setupTestStore creates a test database and evaluation store for testing.
func setupTestStore(t *testing.T) (*gorm.DB, Store) {
	db := testutil.SetupTestDB(t)
	testutil.AutoMigrate(t, db, &Evaluation{})

	log := logger.NewTestLogger()
	store := NewMySQLStore(db, log)

	return db, store
}

// testConfig returns a valid run configuration for tests.
func testConfig() Config {
	return Config{
		StartURL:      "https://example.com/quiz",
		WebsiteName:   "example-quiz",
		MaxSteps:      10,
		Viewport:      "desktop",
		AutoFillForms: true,
	}
}
