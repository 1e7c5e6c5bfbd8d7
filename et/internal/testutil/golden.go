package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// GoldenTraces represents the structure of testdata/goldentraces.json.
type GoldenTraces struct {
	Tests []GoldenTrace `json:"tests"`
}

// GoldenTrace is one schedule with the single-device trace it must produce.
type GoldenTrace struct {
	Name      string `json:"name"`
	Schedule  string `json:"schedule"`
	NumDims   int    `json:"num_dims"`
	NumPasses int    `json:"num_passes"`
	Metadata  bool   `json:"metadata"`
	// Nodes are Node.String() renderings in emission order.
	Nodes []string `json:"nodes"`
}

// LoadGoldenTraces loads the golden traces from the testdata directory.
// The path is resolved relative to this source file: et/internal/testutil/ → testdata/.
func LoadGoldenTraces(t *testing.T) *GoldenTraces {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "goldentraces.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden traces: %v", err)
	}

	var golden GoldenTraces
	if err := json.Unmarshal(data, &golden); err != nil {
		t.Fatalf("Failed to parse golden traces: %v", err)
	}
	return &golden
}
