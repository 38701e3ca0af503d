package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/Foxglovery/BA-google-sheet-magic/pkg/database"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/logger"
)

var (
	// Global test container (shared across all integration tests)
	globalContainer *PostgresContainer
	containerOnce   sync.Once
	containerErr    error
)

// IntegrationSuite provides a base for integration tests with real PostgreSQL
type IntegrationSuite struct {
	Container *PostgresContainer
	DB        *database.DB
	Logger    *logger.Logger
}

// NewIntegrationSuite starts (or reuses) the shared container and runs
// migrate against it.
//
// Usage:
//
//	var suite *testutil.IntegrationSuite
//
//	func TestMain(m *testing.M) {
//	    flag.Parse()
//	    if testing.Short() {
//	        os.Exit(m.Run())
//	    }
//	    suite, err := testutil.NewIntegrationSuite(ctx, repository.Migrate)
//	    ...
//	}
func NewIntegrationSuite(ctx context.Context, migrate func(context.Context, *database.DB) error) (*IntegrationSuite, error) {
	containerOnce.Do(func() {
		globalContainer, containerErr = NewPostgresContainer(ctx)
	})
	if containerErr != nil {
		return nil, containerErr
	}

	log := logger.New("test", "test")
	db, err := database.NewWithDSN(globalContainer.DSN, log)
	if err != nil {
		return nil, err
	}

	if migrate != nil {
		if err := migrate(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate test database: %w", err)
		}
	}

	return &IntegrationSuite{
		Container: globalContainer,
		DB:        db,
		Logger:    log,
	}, nil
}

// Truncate empties the given tables.
func (s *IntegrationSuite) Truncate(t *testing.T, ctx context.Context, tables ...string) {
	t.Helper()
	if len(tables) == 0 {
		return
	}
	if _, err := s.DB.ExecContext(ctx, "TRUNCATE "+strings.Join(tables, ", ")); err != nil {
		t.Fatalf("failed to truncate %v: %v", tables, err)
	}
}

// Cleanup closes the suite connection. The container is shared and is
// stopped by TerminateContainer.
func (s *IntegrationSuite) Cleanup(ctx context.Context) error {
	return s.DB.Close()
}

// TerminateContainer terminates the shared container.
// Only call this in TestMain after all tests have completed.
func TerminateContainer(ctx context.Context) {
	if globalContainer != nil {
		globalContainer.Terminate(ctx)
	}
}
