package db

import (
	"errors"
	"testing"

	"github.com/example/staysite/internal/internaltypes"
	"github.com/jackc/pgx/v5"
)

func TestWrapNotFound(t *testing.T) {
	if WrapNotFound(nil) != nil {
		t.Fatalf("nil should stay nil")
	}
	err := WrapNotFound(pgx.ErrNoRows)
	if !errors.Is(err, internaltypes.ErrNotFound) || !IsNotFound(err) {
		t.Fatalf("no rows should map to not found, got %v", err)
	}
	other := WrapNotFound(errors.New("connection reset"))
	if IsNotFound(other) || other.Error() != "db: connection reset" {
		t.Fatalf("unexpected wrap %v", other)
	}
	if !IsNotFound(pgx.ErrNoRows) {
		t.Fatalf("raw ErrNoRows is not found too")
	}
}
