package client

import (
	"testing"

	"github.com/cutroom/api/internal/config"
)

func TestShellQuote(t *testing.T) {
	cases := []struct{ in, want string }{
		{`plain`, `'plain'`},
		{`with space`, `'with space'`},
		{`it's`, `'it'\''s'`},
		{`$(rm -rf /)`, `'$(rm -rf /)'`},
		{`a"b`, `'a"b'`},
	}
	for _, c := range cases {
		if got := ShellQuote(c.in); got != c.want {
			t.Errorf("ShellQuote(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSSHArgs(t *testing.T) {
	c := NewSSHClient(&config.RemoteConfig{
		Host:    "pipeline.example.com",
		User:    "editor",
		KeyPath: "/keys/id_rsa",
	})
	args := c.sshArgs(RemoteCommand{
		Args:           []string{"/opt/scripts/trigger.sh", "a b", "job-1"},
		ConnectTimeout: 30,
	})

	want := []string{
		"-o", "StrictHostKeyChecking=no",
		"-o", "BatchMode=yes",
		"-o", "ConnectTimeout=30",
		"-i", "/keys/id_rsa",
		"editor@pipeline.example.com",
		"--",
		"'/opt/scripts/trigger.sh'", "'a b'", "'job-1'",
	}
	if len(args) != len(want) {
		t.Fatalf("expected %d args, got %d: %v", len(want), len(args), args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("arg %d: expected %q, got %q", i, want[i], args[i])
		}
	}
}

func TestSSHArgsDefaultTimeout(t *testing.T) {
	c := NewSSHClient(&config.RemoteConfig{Host: "h", User: "u", KeyPath: "k"})
	args := c.sshArgs(RemoteCommand{Args: []string{"true"}})
	found := false
	for _, a := range args {
		if a == "ConnectTimeout=10" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected default ConnectTimeout=10 in %v", args)
	}
}

func TestIsConfigured(t *testing.T) {
	if NewSSHClient(&config.RemoteConfig{}).IsConfigured() {
		t.Error("empty config should not be configured")
	}
	if NewSSHClient(&config.RemoteConfig{Host: "h", User: "u"}).IsConfigured() {
		t.Error("missing key path should not be configured")
	}
	if !NewSSHClient(&config.RemoteConfig{Host: "h", User: "u", KeyPath: "k"}).IsConfigured() {
		t.Error("full config should be configured")
	}
}
