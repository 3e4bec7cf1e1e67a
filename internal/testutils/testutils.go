package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
	"github.com/nfrund/roster/internal/config"
	"github.com/nfrund/roster/internal/logging"
)

// ProjectRoot walks up from the working directory to the directory holding go.mod.
func ProjectRoot(t *testing.T) string {
	t.Helper()

	path, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(path, "go.mod")); err == nil {
			return path
		}
		if path == filepath.Dir(path) {
			t.Fatalf("could not find project root with go.mod")
		}
		path = filepath.Dir(path)
	}
}

// ConfigForTests loads .env.test from the project root into the test's
// environment and returns the resulting config. Tests that need a live
// SurrealDB or Redis are skipped when the file is absent.
func ConfigForTests(t *testing.T) *config.Config {
	t.Helper()

	env, err := godotenv.Read(filepath.Join(ProjectRoot(t), ".env.test"))
	if err != nil {
		t.Skipf("skipping: .env.test not available: %v", err)
	}

	// t.Setenv restores the previous values when the test ends.
	for key, value := range env {
		t.Setenv(key, value)
	}

	logging.New()

	return config.FromEnv()
}
