package cli

import (
	"bytes"
	"strings"
	"testing"
)

// TestExecute runs the root command through Execute
func TestExecute(t *testing.T) {
	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetArgs([]string{"--version"})
	defer RootCmd.SetArgs(nil)

	if err := Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.String(), version) {
		t.Errorf("Expected version %s in output, got %q", version, out.String())
	}
}

func TestExecute_NoArgsPrintsHelp(t *testing.T) {
	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetArgs([]string{})
	defer RootCmd.SetArgs(nil)

	if err := Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.String(), "Available Commands:") {
		t.Errorf("Expected help output, got %q", out.String())
	}
}

func TestExecute_UnknownCommand(t *testing.T) {
	RootCmd.SetOut(&bytes.Buffer{})
	RootCmd.SetErr(&bytes.Buffer{})
	RootCmd.SetArgs([]string{"bogus"})
	defer RootCmd.SetArgs(nil)

	if err := Execute(); err == nil {
		t.Error("Expected error for unknown command, got nil")
	}
}

func TestRootCmd_HasRun(t *testing.T) {
	found := false
	for _, c := range RootCmd.Commands() {
		if c.Name() == "run" {
			found = true
		}
	}
	if !found {
		t.Error("root command should register run")
	}
}
