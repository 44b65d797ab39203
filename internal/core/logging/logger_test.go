package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestComponent(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf)

	Component("refresh").Debug().Str("plugin", "cpu").Msg("lock held")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log: %v", err)
	}
	if entry["cmp"] != "refresh" {
		t.Errorf("cmp = %v, want %q", entry["cmp"], "refresh")
	}
	if entry["plugin"] != "cpu" {
		t.Errorf("plugin = %v, want %q", entry["plugin"], "cpu")
	}
}
