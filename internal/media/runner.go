package media

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// commandResult is an internal process execution response.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts external tool execution for testability. When
// onLine is non-nil it receives each stdout line as it is produced, which is
// how download progress is observed without waiting for the tool to exit.
type commandRunner interface {
	Run(ctx context.Context, onLine func(string), name string, args ...string) (commandResult, error)
}

// execRunner executes commands via os/exec.
type execRunner struct{}

func (r *execRunner) Run(ctx context.Context, onLine func(string), name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stderr = &stderr

	var runErr error
	if onLine == nil {
		cmd.Stdout = &stdout
		runErr = cmd.Run()
	} else {
		pipe, err := cmd.StdoutPipe()
		if err != nil {
			return commandResult{ExitCode: -1}, fmt.Errorf("failed to open stdout pipe: %w", err)
		}
		if err := cmd.Start(); err != nil {
			return commandResult{ExitCode: -1}, err
		}
		scanner := bufio.NewScanner(pipe)
		for scanner.Scan() {
			line := scanner.Text()
			stdout.WriteString(line)
			stdout.WriteByte('\n')
			onLine(line)
		}
		runErr = cmd.Wait()
	}

	result := commandResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if runErr != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, runErr
	}
	return result, nil
}
