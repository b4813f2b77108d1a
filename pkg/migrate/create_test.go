package migrate

import (
	"os"
	"strings"
	"testing"
)

func TestCreateSQLMigrationWritesValidatedTemplate(t *testing.T) {
	dir := t.TempDir()

	path, err := CreateSQLMigration(dir, "Add Phone Index!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_phone_index.sql") {
		t.Fatalf("unexpected filename %q", path)
	}

	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
		if !strings.Contains(string(body), marker) {
			t.Fatalf("template missing %q", marker)
		}
	}

	if err := ValidateDir(dir); err != nil {
		t.Fatalf("freshly created migration should validate: %v", err)
	}
}

func TestCreateSQLMigrationRejectsUnusableName(t *testing.T) {
	if _, err := CreateSQLMigration(t.TempDir(), "!!!"); err == nil {
		t.Fatal("expected error for a name with no usable characters")
	}
	if _, err := CreateSQLMigration("", "ok_name"); err == nil {
		t.Fatal("expected error for a missing dir")
	}
}

func TestValidateDirRejectsBadFilenames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(dir+"/bad-name.sql", []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename error")
	}
}
