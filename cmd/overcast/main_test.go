package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestInitCommandWritesConfig(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "overcast.yaml")

	cmd := initCmd()
	cmd.SetArgs([]string{"--config", cfgPath})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute init: %v", err)
	}

	data, err := os.ReadFile(cfgPath)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !bytes.Contains(data, []byte("overlays:")) {
		t.Fatalf("expected overlays section, got:\n%s", data)
	}
}

func TestInitCommandFailsOnExistingFile(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "overcast.yaml")
	if err := os.WriteFile(cfgPath, []byte("addr: :1\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cmd := initCmd()
	cmd.SetArgs([]string{"--config", cfgPath})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for existing config")
	}
}
