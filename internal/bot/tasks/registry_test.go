package tasks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/graywizard888/nerdmaster/internal/database"
)

// stubStore fakes the maintenance entry point for task tests.
type stubStore struct {
	database.Store
	maintenanceCalls int
	maintenanceErr   error
}

func (s *stubStore) RunSQLMaintenance(_ context.Context) error {
	s.maintenanceCalls++
	return s.maintenanceErr
}

func testTaskDeps(store database.Store) TaskDeps {
	return TaskDeps{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Store:  store,
	}
}

func TestRegisterAllTasks(t *testing.T) {
	t.Parallel()

	tasks := RegisterAllTasks(testTaskDeps(&stubStore{}))
	if _, ok := tasks["sql_maintenance"]; !ok {
		t.Error("sql_maintenance task not registered")
	}
}

func TestSQLMaintenanceTask(t *testing.T) {
	t.Parallel()

	t.Run("Runs Maintenance", func(t *testing.T) {
		t.Parallel()

		store := &stubStore{}
		task := newSQLMaintenanceTask(testTaskDeps(store))

		if err := task(context.Background()); err != nil {
			t.Fatalf("task failed: %v", err)
		}
		if store.maintenanceCalls != 1 {
			t.Errorf("maintenance ran %d times, want 1", store.maintenanceCalls)
		}
	})

	t.Run("Propagates Errors", func(t *testing.T) {
		t.Parallel()

		wantErr := errors.New("disk full")
		store := &stubStore{maintenanceErr: wantErr}
		task := newSQLMaintenanceTask(testTaskDeps(store))

		if err := task(context.Background()); !errors.Is(err, wantErr) {
			t.Errorf("task returned %v, want wrapped %v", err, wantErr)
		}
	})
}
