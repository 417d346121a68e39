//go:build linux
// +build linux

package main

import (
	"bytes"
	"encoding/json"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlagsDefaults(t *testing.T) {
	cfg, err := parseFlags(nil)
	require.NoError(t, err)

	assert.Equal(t, time.Millisecond, cfg.Period)
	assert.Equal(t, 125*time.Microsecond, cfg.BucketWidth)
	assert.Equal(t, defaultSendPriority, cfg.SendPriority)
	assert.Equal(t, defaultReceivePriority, cfg.ReceivePriority)
	assert.Zero(t, cfg.Iterations)
	assert.True(t, cfg.CyclicOnly())
}

func TestParseFlagsProfileOverriddenByFlags(t *testing.T) {
	cfg, err := parseFlags([]string{"--profile", "smoke", "--period", "500"})
	require.NoError(t, err)

	assert.Equal(t, 500*time.Microsecond, cfg.Period, "explicit --period wins")
	assert.Equal(t, uint64(5000), cfg.Iterations, "iterations come from the profile")
	assert.Equal(t, 62500*time.Nanosecond, cfg.BucketWidth)
}

func TestParseFlagsProfileBucketWidth(t *testing.T) {
	cfg, err := parseFlags([]string{"-p", "motion"})
	require.NoError(t, err)
	assert.Equal(t, 250*time.Microsecond, cfg.Period)
	assert.Equal(t, 10*time.Microsecond, cfg.BucketWidth)

	cfg, err = parseFlags([]string{"-p", "motion", "-b", "20"})
	require.NoError(t, err)
	assert.Equal(t, 20*time.Microsecond, cfg.BucketWidth)
}

func TestParseFlagsErrors(t *testing.T) {
	for name, args := range map[string][]string{
		"unknown profile":   {"--profile", "nope"},
		"zero period":       {"--period", "0"},
		"bad priority":      {"--send-priority", "0"},
		"priority too high": {"--receive-priority", "100"},
		"negative cpu":      {"--send-cpu", "-1"},
		"bad log level":     {"--log-level", "loud"},
		"positional":        {"eth0"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := parseFlags(args)
			assert.Error(t, err)
		})
	}
}

func TestCyclicOnly(t *testing.T) {
	assert.False(t, (&Config{NIC: "eth0"}).CyclicOnly())
	assert.False(t, (&Config{Simulate: true}).CyclicOnly())
	assert.True(t, (&Config{}).CyclicOnly())
}

func TestPrintProfilesOrder(t *testing.T) {
	var buf bytes.Buffer
	printProfiles(&buf)
	out := buf.String()

	assert.Equal(t, len(profiles), bytes.Count(buf.Bytes(), []byte("\n")))
	// Slowest cycle first
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("500hz")), bytes.Index(buf.Bytes(), []byte("8khz")))
	assert.Contains(t, out, "5000 iterations")
}

func TestPipedOutputHasNoEscapes(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the binary")
	}
	cmd := exec.Command("go", "run", ".", "--simulate", "--no-rt", "--iterations", "50", "--log-level", "error")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = nil

	if err := cmd.Run(); err != nil {
		t.Fatalf("command failed: %v", err)
	}

	output := stdout.Bytes()
	require.NotEmpty(t, output)
	assert.NotContains(t, string(output), "\033[", "escape sequences on a pipe")
	assert.Contains(t, string(output), "Duration:")
	assert.Contains(t, string(output), "Sender")
	assert.Contains(t, string(output), "Receiver")
}

func TestJSONSummary(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the binary")
	}
	cmd := exec.Command("go", "run", ".", "--simulate", "--no-rt", "--iterations", "30", "--json", "--log-level", "error")
	out, err := cmd.Output()
	require.NoError(t, err)

	var summary struct {
		Reports []struct {
			Label string `json:"label"`
		} `json:"reports"`
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(out, &summary))
	assert.Empty(t, summary.Error)

	labels := make([]string, 0, len(summary.Reports))
	for _, r := range summary.Reports {
		labels = append(labels, r.Label)
	}
	assert.Equal(t, []string{"Sender", "Receiver", "HW delta", "SW delta"}, labels)
}
