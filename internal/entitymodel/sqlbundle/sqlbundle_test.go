package sqlbundle

import (
	"regexp"
	"strings"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	stmts := SplitStatements(SQLite())
	if len(stmts) == 0 {
		t.Fatal("expected sqlite DDL to produce statements")
	}
	for _, stmt := range stmts {
		if strings.HasPrefix(strings.TrimSpace(stmt), "--") {
			t.Fatalf("statement unexpectedly starts with comment: %q", stmt)
		}
		if !strings.HasSuffix(strings.TrimSpace(stmt), ";") {
			t.Fatalf("statement missing semicolon terminator: %q", stmt)
		}
	}
}

func TestSplitStatementsKeepsUnterminatedTail(t *testing.T) {
	stmts := SplitStatements("-- header\nCREATE TABLE a (id TEXT);\n\nSELECT 1")
	if len(stmts) != 2 || stmts[1] != "SELECT 1" {
		t.Fatalf("unexpected statements %q", stmts)
	}
}

func TestBundlesDeclareEveryTable(t *testing.T) {
	tables := []string{"base_models", "users", "states", "cities", "amenities", "places", "reviews"}
	for name, ddl := range map[string]string{"sqlite": SQLite(), "postgres": Postgres()} {
		for _, table := range tables {
			if !strings.Contains(ddl, "CREATE TABLE IF NOT EXISTS "+table+" (") {
				t.Fatalf("%s bundle missing table %s", name, table)
			}
		}
		if !strings.Contains(ddl, "extra") {
			t.Fatalf("%s bundle missing extra column", name)
		}
	}
}

// Postgres columns must hold anything the file and sqlite backends accept.
func TestPostgresColumnsAreUnbounded(t *testing.T) {
	bounded := regexp.MustCompile(`(?i)\b(VARCHAR|CHAR|CHARACTER VARYING)\s*\(|\b(INTEGER|INT|INT4|SMALLINT)\b`)
	for _, stmt := range SplitStatements(Postgres()) {
		if m := bounded.FindString(stmt); m != "" {
			t.Fatalf("bounded column type %q in %s", m, stmt)
		}
	}
}
