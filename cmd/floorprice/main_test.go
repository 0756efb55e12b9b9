package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nft-floor-lab/internal/config"
	"nft-floor-lab/internal/reporting"
)

func TestApplyFlags_OnlyChangedOverride(t *testing.T) {
	cmd := newEstimateCmd()
	addStorageFlags(cmd.Flags())
	require.NoError(t, cmd.Flags().Parse([]string{"--lookback=20", "--speed=0.25", "--sink=memory"}))

	cfg := config.Default()
	cfg.Estimation.Backtest = 123 // as if from file or env
	require.NoError(t, applyFlags(cmd.Flags(), &cfg))

	assert.Equal(t, 20, cfg.Estimation.Lookback)
	assert.Equal(t, 0.25, cfg.Estimation.Speed)
	assert.Equal(t, config.BackendMemory, cfg.Storage.Sink)
	assert.Equal(t, 123, cfg.Estimation.Backtest, "unset flag keeps lower-precedence value")
	assert.Equal(t, 0.05, cfg.Estimation.PctTarget)
}

func TestEstimateCommand_CSVToReport(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "nft_trades.csv")
	outDir := filepath.Join(dir, "out")

	var sb strings.Builder
	sb.WriteString("chain_id,contract_address,token_id,block_number,price_eth,twap-bid\n")
	for _, p := range []string{"1", "2", "3", "4", "5"} {
		sb.WriteString("1,0xabc," + p + "," + p + "," + p + ",\n") // no benchmark
	}
	require.NoError(t, os.WriteFile(csvPath, []byte(sb.String()), 0644))

	root := newRootCmd()
	root.SetArgs([]string{
		"estimate",
		"--csv-path", csvPath,
		"--sink", "memory",
		"--lookback", "3",
		"--backtest", "10",
		"--pct-target", "0.5",
		"--pct-target-min", "0.1",
		"--pct-target-max", "0.9",
		"--twap-buffer-pct", "0",
		"--log-level", "error",
		"--output-dir", outDir,
	})
	require.NoError(t, root.ExecuteContext(context.Background()))

	data, err := os.ReadFile(filepath.Join(outDir, reporting.CSVFileName))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "1,0xabc,4.2"), lines[1])
}

func TestEstimateCommand_InvalidConfigFailsBeforeIO(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{
		"estimate",
		"--csv-path", filepath.Join(t.TempDir(), "does-not-exist.csv"),
		"--pct-target-min", "0.2",
		"--pct-target-max", "0.1",
	})

	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestReportCommand_RequiresDatabaseSink(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"report", "--run-id", "abc", "--sink", "memory"})

	err := root.ExecuteContext(context.Background())
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
