package environmentmanager

import (
	"context"
	"errors"
	"testing"

	cm "github.com/steelcutops/pipcut/pipcut/commandmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockCommandManager struct {
	Result cm.CommandResult
	Err    error
	Last   cm.CommandConfig
}

func (m *MockCommandManager) RunLocal(ctx context.Context, config cm.CommandConfig) (cm.CommandResult, error) {
	return m.Run(ctx, config)
}

func (m *MockCommandManager) RunRemote(ctx context.Context, config cm.CommandConfig) (cm.CommandResult, error) {
	return m.Run(ctx, config)
}

func (m *MockCommandManager) Run(ctx context.Context, config cm.CommandConfig) (cm.CommandResult, error) {
	m.Last = config
	return m.Result, m.Err
}

func TestGet(t *testing.T) {
	mockCmd := &MockCommandManager{Result: cm.CommandResult{STDOUT: "/srv/venv\n"}}
	env := UnixEnvironmentManager{CommandManager: mockCmd}

	value, ok, err := env.Get(context.Background(), "VIRTUAL_ENV")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/srv/venv", value)
	assert.Equal(t, cm.CommandConfig{Command: "printenv", Args: []string{"VIRTUAL_ENV"}}, mockCmd.Last)
}

func TestGetUnset(t *testing.T) {
	mockCmd := &MockCommandManager{
		Result: cm.CommandResult{ExitCode: 1},
		Err:    errors.New("exit status 1"),
	}
	env := UnixEnvironmentManager{CommandManager: mockCmd}

	value, ok, err := env.Get(context.Background(), "VIRTUAL_ENV")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, value)
}

func TestGetFailure(t *testing.T) {
	mockCmd := &MockCommandManager{Err: errors.New("connection reset")}
	env := UnixEnvironmentManager{CommandManager: mockCmd}

	_, _, err := env.Get(context.Background(), "VIRTUAL_ENV")
	assert.EqualError(t, err, "connection reset")
}

func TestList(t *testing.T) {
	mockCmd := &MockCommandManager{Result: cm.CommandResult{STDOUT: "HOME=/root\nPATH=/usr/bin:/bin\nA=b=c\n"}}
	env := UnixEnvironmentManager{CommandManager: mockCmd}

	envs, err := env.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"HOME": "/root",
		"PATH": "/usr/bin:/bin",
		"A":    "b=c",
	}, envs)
}
