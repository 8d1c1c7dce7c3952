package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/lib/pq"

	"github.com/tobyhearn/newshound/internal/config"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestIsUniqueViolation(t *testing.T) {
	dup := &pq.Error{Code: pqUniqueViolation, Message: "duplicate key value violates unique constraint"}
	if !isUniqueViolation(dup) {
		t.Error("unique violation not recognized")
	}
	if !isUniqueViolation(fmt.Errorf("insert: %w", dup)) {
		t.Error("wrapped unique violation not recognized")
	}
	if isUniqueViolation(&pq.Error{Code: "23503"}) {
		t.Error("foreign key violation misclassified")
	}
	if isUniqueViolation(errors.New("plain error")) {
		t.Error("plain error misclassified")
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), &config.StorageConfig{Type: "sqlite"}, testLogger)
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
