package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestRunVersion(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), &out, &out, []string{"version"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "Caio") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunVersionJSON(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), &out, &out, []string{"-o", "json", "version"}); err != nil {
		t.Fatalf("run: %v", err)
	}

	var info map[string]string
	if err := json.Unmarshal(out.Bytes(), &info); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if info["version"] == "" {
		t.Errorf("missing version field: %v", info)
	}
}

func TestRunNoCommandPrintsUsage(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), &out, &out, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "Usage:") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunUnknownCommand(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), &out, &out, []string{"bogus"}); err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestRunUnknownFlag(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), &out, &out, []string{"-frobnicate"}); err == nil {
		t.Fatal("expected error for unknown flag")
	}
}

func TestRunBadOutputFormat(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), &out, &out, []string{"-o", "xml", "version"}); err == nil {
		t.Fatal("expected error for unknown output format")
	}
}
