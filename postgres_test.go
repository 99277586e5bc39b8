package slicebox_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/slicebox"
)

func TestPostgresJournal(t *testing.T) {
	dsn := os.Getenv("SLICEBOX_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("SLICEBOX_POSTGRES_DSN not set")
	}

	cfg := slicebox.DefaultJournalConfig()
	cfg.Backend = slicebox.BackendPostgres
	cfg.DSN = dsn
	cfg.Prefix = "test-" + uuid.NewString()

	j, err := slicebox.NewPostgresJournal(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = j.Close() }()

	testJournal(t, j)
}
