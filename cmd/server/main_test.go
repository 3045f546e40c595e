package main

import (
	"testing"

	"github.com/jimdaga/ascend/internal/config"
	"github.com/jimdaga/ascend/internal/logging"
	"github.com/stretchr/testify/assert"
)

func TestRun_RejectsUnknownMode(t *testing.T) {
	err := run("scheduler", &config.Config{}, logging.Discard())
	assert.ErrorContains(t, err, `unknown mode "scheduler"`)
}

func TestRun_WorkerModesNeedRedis(t *testing.T) {
	for _, mode := range []string{modeWorker, modeEmbedded} {
		err := run(mode, &config.Config{}, logging.Discard())
		assert.ErrorContains(t, err, "requires REDIS_URL", mode)
	}
}

func TestRun_ServerNeedsDatabase(t *testing.T) {
	err := run(modeServer, &config.Config{}, logging.Discard())
	assert.ErrorContains(t, err, "database URL is required")
}
