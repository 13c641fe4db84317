package main

import (
	"testing"

	"rollcall/internal/config"
)

func TestRun_RejectsInvalidEnvironment(t *testing.T) {
	t.Setenv("ROLLCALL_STORAGE_BACKEND", "s3")
	t.Setenv(config.ConfigFileEnv, "")

	if err := run(); err == nil {
		t.Fatal("run should fail for an unknown storage backend")
	}
}
