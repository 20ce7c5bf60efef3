package db

import (
	"context"
	"testing"
)

func TestInitPostgresNoDSN(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if pool := InitPostgres(context.Background()); pool != nil {
		t.Fatal("expected nil pool when DATABASE_URL is unset")
	}
}
