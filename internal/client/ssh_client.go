package client

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/cutroom/api/internal/config"
)

// RemoteCommand is one invocation on the pipeline host. Args are the remote
// command words; each is shell-quoted before transport, so callers pass raw
// values without any escaping of their own.
type RemoteCommand struct {
	Args           []string
	ConnectTimeout int // seconds; bounds only the SSH handshake
}

// ExitObserver receives the outcome of a detached remote invocation.
type ExitObserver func(exitCode int, stderr string)

// RemoteRunner defines the interface to the remote pipeline host.
// Run blocks until the remote command exits; Start launches it detached and
// reports the exit through the observer without blocking the caller.
type RemoteRunner interface {
	Run(ctx context.Context, cmd RemoteCommand) (stdout, stderr []byte, err error)
	Start(cmd RemoteCommand, onExit ExitObserver) error
	IsConfigured() bool
}

// SSHClient implements RemoteRunner over the ssh binary. The local process
// is exec'd with an argument vector; no local shell interprets anything.
type SSHClient struct {
	host    string
	user    string
	keyPath string
}

func NewSSHClient(cfg *config.RemoteConfig) *SSHClient {
	return &SSHClient{
		host:    cfg.Host,
		user:    cfg.User,
		keyPath: cfg.KeyPath,
	}
}

// IsConfigured reports whether a remote host is set up.
func (c *SSHClient) IsConfigured() bool {
	return c.host != "" && c.user != "" && c.keyPath != ""
}

func (c *SSHClient) sshArgs(cmd RemoteCommand) []string {
	timeout := cmd.ConnectTimeout
	if timeout <= 0 {
		timeout = 10
	}
	args := []string{
		"-o", "StrictHostKeyChecking=no",
		"-o", "BatchMode=yes",
		"-o", fmt.Sprintf("ConnectTimeout=%d", timeout),
		"-i", c.keyPath,
		fmt.Sprintf("%s@%s", c.user, c.host),
		"--",
	}
	for _, word := range cmd.Args {
		args = append(args, ShellQuote(word))
	}
	return args
}

// Run executes the remote command synchronously.
func (c *SSHClient) Run(ctx context.Context, cmd RemoteCommand) ([]byte, []byte, error) {
	ssh := exec.CommandContext(ctx, "ssh", c.sshArgs(cmd)...)
	var stdout, stderr bytes.Buffer
	ssh.Stdout = &stdout
	ssh.Stderr = &stderr
	err := ssh.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Start launches the remote command and returns once the local ssh process
// is running. The command keeps executing after the triggering HTTP request
// ends; a goroutine waits for the exit and hands it to the observer.
func (c *SSHClient) Start(cmd RemoteCommand, onExit ExitObserver) error {
	ssh := exec.Command("ssh", c.sshArgs(cmd)...)
	var stderr bytes.Buffer
	ssh.Stderr = &stderr

	if err := ssh.Start(); err != nil {
		return fmt.Errorf("ssh start: %w", err)
	}

	go func() {
		err := ssh.Wait()
		code := 0
		if err != nil {
			code = -1
			if exitErr, ok := err.(*exec.ExitError); ok {
				code = exitErr.ExitCode()
			}
		}
		if onExit != nil {
			onExit(code, stderrTail(stderr.String(), 6))
		}
	}()
	return nil
}

// ShellQuote wraps a word in single quotes for the remote shell, the only
// interpretation layer left after the argv-based local exec.
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
