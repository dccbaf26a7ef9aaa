package repositories

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

// The membership INSERT must only name columns the migration actually
// creates; a drifted column name surfaces as SQLSTATE 42703 at runtime.
func TestAddPlaylistVideoColumnsMatchSchema(t *testing.T) {
	schema := playlistVideosColumns(t)

	m := regexp.MustCompile(`INSERT INTO playlist_videos \(([^)]+)\)`).FindStringSubmatch(addPlaylistVideoSQL)
	if m == nil {
		t.Fatalf("no INSERT column list found in %q", addPlaylistVideoSQL)
	}

	for _, column := range strings.Split(m[1], ",") {
		column = strings.TrimSpace(column)
		if !schema[column] {
			t.Errorf("INSERT names column %q which playlist_videos does not define", column)
		}
	}
}

func playlistVideosColumns(t *testing.T) map[string]bool {
	t.Helper()

	contents, err := os.ReadFile(filepath.Join("..", "..", "migrations", "0001_init.sql"))
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}

	m := regexp.MustCompile(`(?s)CREATE TABLE IF NOT EXISTS playlist_videos \((.*?)\);`).FindStringSubmatch(string(contents))
	if m == nil {
		t.Fatal("playlist_videos table not found in migration")
	}

	columns := make(map[string]bool)
	for _, line := range strings.Split(m[1], "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		switch strings.ToUpper(fields[0]) {
		case "PRIMARY", "UNIQUE", "CHECK", "CONSTRAINT", "FOREIGN":
			continue
		}
		columns[fields[0]] = true
	}
	if len(columns) == 0 {
		t.Fatal("no columns parsed from playlist_videos definition")
	}
	return columns
}
