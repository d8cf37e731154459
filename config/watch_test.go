package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherStopsOnCancel(t *testing.T) {
	path := writeTempConfig(t, "env: dev\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Watcher{Path: path}.Start(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWatcherMissingDir(t *testing.T) {
	err := Watcher{Path: "/nonexistent/dir/cfg.yaml"}.Start(context.Background(), nil)
	assert.Error(t, err)
}

func TestWatcherTriggersOnChange(t *testing.T) {
	path := writeTempConfig(t, "env: dev\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates := make(chan AppConfig, 4)
	go func() {
		_ = Watcher{Path: path, Cooldown: 20 * time.Millisecond}.Start(ctx, func(cfg AppConfig) {
			updates <- cfg
		})
	}()

	// 给 watcher 注册目录的时间；无效内容不会触发回调
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("env: dev\nbogus: 1\n"), 0o644))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("env: staging\n"), 0o644))

	select {
	case cfg := <-updates:
		assert.Equal(t, "staging", cfg.Env)
	case <-time.After(3 * time.Second):
		t.Fatal("expected update callback")
	}
}
