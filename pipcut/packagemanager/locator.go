package packagemanager

import (
	"context"
	"path"
	"strings"
	"sync"

	cm "github.com/steelcutops/pipcut/pipcut/commandmanager"
	"github.com/steelcutops/pipcut/pipcut/environmentmanager"
)

const virtualEnvVar = "VIRTUAL_ENV"

// CommandLocator finds the pip executable on a host and remembers it until
// Reset is called. It is safe for concurrent use; concurrent callers share
// one discovery.
type CommandLocator struct {
	CommandManager cm.CommandManager
	Env            environmentmanager.EnvironmentManager

	// Path, when set, is used verbatim and no discovery happens.
	Path string
	// Candidates are looked up with `which` in order. Defaults to "pip".
	Candidates []string

	mu       sync.Mutex
	resolved string
}

func NewCommandLocator(commandManager cm.CommandManager, env environmentmanager.EnvironmentManager, candidates ...string) *CommandLocator {
	return &CommandLocator{
		CommandManager: commandManager,
		Env:            env,
		Candidates:     candidates,
	}
}

// Resolve returns the remembered pip path or discovers it. The returned
// error is always a CommandUnresolvedError.
func (l *CommandLocator) Resolve(ctx context.Context) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.resolved != "" {
		return l.resolved, nil
	}

	if l.Path != "" {
		l.resolved = l.Path
		return l.resolved, nil
	}

	var lastErr error
	for _, target := range l.targets(ctx) {
		found, err := l.which(ctx, target)
		if err != nil {
			lastErr = err
			continue
		}
		if found != "" {
			l.resolved = found
			return found, nil
		}
	}

	return "", NewCommandUnresolvedError(lastErr, l.primary())
}

// Resolved reports the remembered path without discovering.
func (l *CommandLocator) Resolved() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.resolved, l.resolved != ""
}

// Reset forgets the remembered path so the next Resolve discovers again.
func (l *CommandLocator) Reset() {
	l.mu.Lock()
	l.resolved = ""
	l.mu.Unlock()
}

func (l *CommandLocator) candidates() []string {
	if len(l.Candidates) == 0 {
		return []string{"pip"}
	}
	return l.Candidates
}

func (l *CommandLocator) primary() string {
	return l.candidates()[0]
}

// targets lists what to look up: the active virtualenv's bin dir first,
// then the bare candidate names on PATH.
func (l *CommandLocator) targets(ctx context.Context) []string {
	var targets []string
	if l.Env != nil {
		if venv, ok, err := l.Env.Get(ctx, virtualEnvVar); err == nil && ok && venv != "" {
			for _, c := range l.candidates() {
				targets = append(targets, path.Join(venv, "bin", c))
			}
		}
	}
	return append(targets, l.candidates()...)
}

func (l *CommandLocator) which(ctx context.Context, target string) (string, error) {
	result, err := l.CommandManager.Run(ctx, cm.CommandConfig{
		Command: "which",
		Args:    []string{target},
	})
	if err != nil {
		return "", err
	}

	line, _, _ := strings.Cut(result.STDOUT, "\n")
	return strings.TrimSpace(line), nil
}
