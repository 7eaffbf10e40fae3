package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infralogger "github.com/V-SK/moltboard/infrastructure/logger"
	"github.com/V-SK/moltboard/internal/config"
	"github.com/V-SK/moltboard/internal/leaderboard"
	"github.com/V-SK/moltboard/internal/upstream"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newVersionCommand()
	cmd.SetOut(&out)

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "moltboard version "+Version+"\n", out.String())
}

func TestNewStrategy(t *testing.T) {
	log := infralogger.NewNop()
	client := upstream.NewClient(upstream.Config{BaseURL: "http://127.0.0.1:1"}, log, nil)

	cfg := config.Default()
	assert.IsType(t, &leaderboard.FanOut{}, newStrategy(cfg, client, log, nil))

	cfg.Leaderboard.Strategy = config.StrategyPassthrough
	assert.IsType(t, &leaderboard.Passthrough{}, newStrategy(cfg, client, log, nil))
}

func TestRootRegistersSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"serve", "watch", "search", "version"} {
		assert.True(t, names[want], want)
	}
}

func TestLoadConfig_DebugFlag(t *testing.T) {
	t.Setenv("CONFIG_PATH", t.TempDir()+"/missing.yml")
	debug = true
	t.Cleanup(func() { debug = false })

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.Service.Debug)
	assert.Equal(t, "debug", cfg.Logging.Level)
}
