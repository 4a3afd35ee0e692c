package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/session"
)

func testSession(t *testing.T) *session.Session {
	t.Helper()
	s, err := session.New(session.Options{Interval: time.Hour, Seed: 1})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestExecute_Commands(t *testing.T) {
	s := testSession(t)
	var out bytes.Buffer
	ctx := context.Background()

	_, err := execute(ctx, s, "rfi", &out)
	assert.ErrorIs(t, err, session.ErrNotRunning)

	_, err = execute(ctx, s, "start", &out)
	require.NoError(t, err)
	assert.True(t, s.View().Running)

	_, err = execute(ctx, s, "  RFI ", &out)
	require.NoError(t, err)
	assert.Equal(t, session.MsgReflective, s.View().Diagnostics)

	_, err = execute(ctx, s, "emotion", &out)
	assert.Error(t, err, "emotion needs a label")
	_, err = execute(ctx, s, "emotion curiosity", &out)
	require.NoError(t, err)

	_, err = execute(ctx, s, "diag", &out)
	assert.ErrorIs(t, err, session.ErrNoPacket)

	_, err = execute(ctx, s, "warp", &out)
	assert.Error(t, err)

	quit, err := execute(ctx, s, "", &out)
	require.NoError(t, err)
	assert.False(t, quit)

	quit, err = execute(ctx, s, "quit", &out)
	require.NoError(t, err)
	assert.True(t, quit)
}

func TestExecute_Status(t *testing.T) {
	s := testSession(t)
	s.Start()
	s.Engine().Step()

	var out bytes.Buffer
	_, err := execute(context.Background(), s, "status", &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "RUNNING (tick 1)")
	assert.Contains(t, out.String(), "category:")
	assert.Contains(t, out.String(), "Initializing")
}

func TestPrompt_StopsOnQuitAndEOF(t *testing.T) {
	s := testSession(t)
	var out bytes.Buffer

	lines := make(chan string, 3)
	lines <- "start"
	lines <- "quit"
	lines <- "stop"
	require.NoError(t, prompt(context.Background(), s, lines, &out))
	assert.True(t, s.View().Running, "lines after quit are not executed")

	closed := make(chan string)
	close(closed)
	require.NoError(t, prompt(context.Background(), s, closed, &out))
}

func TestLabelNames(t *testing.T) {
	assert.Equal(t, []string{"joy", "curiosity", "fear", "anger", "sadness", "neutral"}, labelNames())
}
