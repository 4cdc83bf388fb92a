package testsupport

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// SQLiteMemoryDSN returns a DSN for a private in-memory SQLite database.
func SQLiteMemoryDSN() string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
}

// NewTestDB opens an empty in-memory SQLite database closed with the test.
// The pool is limited to one connection so the database lives as long as the
// handle does.
func NewTestDB(t testing.TB) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open("sqlite3", SQLiteMemoryDSN())
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}
