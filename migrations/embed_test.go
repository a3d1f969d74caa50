package migrations

import (
	"testing"

	"github.com/nerrad567/vuedl/internal/infrastructure/database"
)

func TestFS_LoadsReadingsSchema(t *testing.T) {
	ms, err := database.LoadMigrations(FS)
	if err != nil {
		t.Fatalf("LoadMigrations() error = %v", err)
	}
	if len(ms) == 0 {
		t.Fatal("no embedded migrations")
	}
	if ms[0].Name != "readings" || ms[0].DownSQL == "" {
		t.Errorf("first migration = %s (%s), down present %v", ms[0].Version, ms[0].Name, ms[0].DownSQL != "")
	}
}
