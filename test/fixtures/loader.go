// Package fixtures loads canned JSON-RPC results for integration tests.
package fixtures

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// fixturesDir returns the absolute path to the fixtures directory.
func fixturesDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Dir(file)
}

// LoadRPCResult loads a fixture JSON file holding one JSON-RPC result value
// (e.g. an eth_getLogs log array).
func LoadRPCResult(t *testing.T, filename string) interface{} {
	t.Helper()
	path := filepath.Join(fixturesDir(), "rpc", filename)
	data, err := os.ReadFile(path)
	require.NoError(t, err, "failed to load fixture: %s", filename)

	var result interface{}
	require.NoError(t, json.Unmarshal(data, &result))
	return result
}
