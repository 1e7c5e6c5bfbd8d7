package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/etgen/et"
	"github.com/inference-sim/etgen/et/chakra"
)

const hybridSchedule = `HYBRID_DATA_MODEL
3
embed 1 100 ALLGATHER 4096 120 ALLTOALL 4096 80 ALLREDUCE 8192 10
attn 1 300 ALLREDUCE 2048 280 ALLREDUCE 2048 260 REDUCESCATTER 16384 10
head 0 50 ALLREDUCE 1024 40 ALLREDUCE 1024 30 ALLREDUCE 1024 10
`

func TestRunConvert_ParallelJobsMatchSequential(t *testing.T) {
	// GIVEN a hybrid schedule and two output bases
	input := writeFile(t, "hybrid.txt", hybridSchedule)
	dir := t.TempDir()
	base := func(jobs int) *convertOptions {
		return &convertOptions{
			input:     input,
			output:    filepath.Join(dir, fmt.Sprintf("jobs%d", jobs), "trace"),
			numDims:   2,
			numNPUs:   6,
			numPasses: 2,
			jobs:      jobs,
		}
	}
	seq, par := base(1), base(4)

	// WHEN converted sequentially and with four jobs
	require.NoError(t, runConvert(context.Background(), seq))
	require.NoError(t, runConvert(context.Background(), par))

	// THEN every device trace is byte-identical
	for device := 0; device < 6; device++ {
		want, err := os.ReadFile(chakra.TracePath(seq.output, device))
		require.NoError(t, err)
		got, err := os.ReadFile(chakra.TracePath(par.output, device))
		require.NoError(t, err)
		assert.NotEmpty(t, want)
		assert.Equal(t, want, got, "device %d", device)
	}
}

func TestRunConvert_ParseErrorNamesInput(t *testing.T) {
	input := writeFile(t, "bad.txt", "DATA\n2\nonly_one 1 1 ALLREDUCE 1 1 ALLREDUCE 1 1 ALLREDUCE 1 1\n")
	opts := &convertOptions{input: input, output: filepath.Join(t.TempDir(), "t"), numDims: 1, numNPUs: 1, numPasses: 1, jobs: 1}

	err := runConvert(context.Background(), opts)

	assert.ErrorIs(t, err, et.ErrParse)
	assert.Contains(t, err.Error(), input)
}

func TestRunConvert_StrictCommKinds(t *testing.T) {
	input := writeFile(t, "odd.txt", "MICRO\n1\nx 0 0 ALLREDUCE 0 0 ALLREDUCE 0 0 BROADCAST 8 0\n")
	out := filepath.Join(t.TempDir(), "t")
	opts := &convertOptions{input: input, output: out, numDims: 1, numNPUs: 1, numPasses: 1, jobs: 1}

	require.NoError(t, runConvert(context.Background(), opts))

	opts.strictCommKinds = true
	assert.ErrorIs(t, runConvert(context.Background(), opts), et.ErrParse)
}

func TestRunConvert_MissingInput(t *testing.T) {
	opts := &convertOptions{input: filepath.Join(t.TempDir(), "none.txt"), output: "x", numDims: 1, numNPUs: 1, numPasses: 1, jobs: 1}
	assert.ErrorIs(t, runConvert(context.Background(), opts), os.ErrNotExist)
}
