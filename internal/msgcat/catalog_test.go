package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEmbeddedKeys(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, k := range []string{"winner.sms", "judge.summary", "sweep.summary"} {
		if !c.Has(k) {
			t.Fatalf("missing key %s (have %v)", k, c.Keys())
		}
	}
}

func TestRenderWinner(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Render("winner.sms", map[string]any{"Name": "Ana", "Game": "Jogo Antigo"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != `Congratulations Ana! You won "Jogo Antigo".` {
		t.Fatalf("got %q", got)
	}
}

func TestRenderErrors(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Render("no.such.key", nil); err == nil {
		t.Fatalf("expected error for unknown key")
	}
	if _, err := c.Render("winner.sms", map[string]any{"Name": "Ana"}); err == nil {
		t.Fatalf("expected error for missing field")
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "a.yaml", "winner:\n  sms: \"Parabens {{.Name}}\"\n")
	write(t, dir, "b.yml", "extra:\n  hello: hi\n")
	write(t, dir, "notes.txt", "ignored: true\n")

	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Render("winner.sms", map[string]any{"Name": "Ana"})
	if err != nil || got != "Parabens Ana" {
		t.Fatalf("got %q err=%v", got, err)
	}
	if !c.Has("extra.hello") || !c.Has("judge.summary") {
		t.Fatalf("keys: %v", c.Keys())
	}
}

func TestOverrideDirRejectsDuplicatesAndBadTemplates(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "a.yaml", "winner:\n  sms: one\n")
	write(t, dir, "b.yaml", "winner:\n  sms: two\n")
	if _, err := New(dir); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	bad := t.TempDir()
	write(t, bad, "a.yaml", "winner:\n  sms: \"{{.Name\"\n")
	if _, err := New(bad); err == nil {
		t.Fatalf("expected parse error")
	}

	nonString := t.TempDir()
	write(t, nonString, "a.yaml", "winner:\n  sms: 3\n")
	if _, err := New(nonString); err == nil {
		t.Fatalf("expected type error")
	}
}

func write(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}
