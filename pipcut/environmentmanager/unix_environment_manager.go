package environmentmanager

import (
	"context"
	"errors"
	"strings"

	cm "github.com/steelcutops/pipcut/pipcut/commandmanager"
)

type UnixEnvironmentManager struct {
	CommandManager cm.CommandManager
}

func (e *UnixEnvironmentManager) Get(ctx context.Context, key string) (string, bool, error) {
	output, err := e.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "printenv",
		Args:    []string{key},
	})
	if err != nil {
		// printenv exits 1 for an unset variable
		if output.ExitCode == 1 && !errors.Is(err, cm.ErrCommandNotFound) {
			return "", false, nil
		}
		return "", false, err
	}

	return strings.TrimRight(output.STDOUT, "\r\n"), true, nil
}

func (e *UnixEnvironmentManager) List(ctx context.Context) (map[string]string, error) {
	output, err := e.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "printenv",
	})
	if err != nil {
		return nil, err
	}

	envs := make(map[string]string)
	for _, line := range strings.Split(output.STDOUT, "\n") {
		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 && parts[0] != "" {
			envs[parts[0]] = parts[1]
		}
	}

	return envs, nil
}
