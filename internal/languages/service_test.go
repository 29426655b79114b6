package languages

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-mesh/internal/runtimeconfig"
	"github.com/goliatone/go-mesh/internal/session"
)

func newService(t *testing.T, dir string) *Service {
	t.Helper()
	cfg := runtimeconfig.DefaultConfig()
	cfg.Languages = []string{"de", "en", "fr"}
	cfg.LanguageDirectory = dir
	return New(cfg)
}

func writeLanguage(t *testing.T, dir, code, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "lang-"+code+".json"), []byte(body), 0o600); err != nil {
		t.Fatalf("write language file: %v", err)
	}
}

func TestCurrentLanguageDefaultsToFirstConfigured(t *testing.T) {
	svc := newService(t, "")
	if got := svc.CurrentLanguage(context.Background()); got != "de" {
		t.Fatalf("expected de, got %q", got)
	}
}

func TestSetLanguageOnlyAcceptsConfiguredCodes(t *testing.T) {
	svc := newService(t, "")
	ctx := session.WithSession(context.Background(), session.New())

	if svc.SetLanguage(ctx, "it") {
		t.Fatalf("expected unknown language to be rejected")
	}
	if !svc.SetLanguage(ctx, "en") {
		t.Fatalf("expected en to be accepted")
	}
	if got := svc.CurrentLanguage(ctx); got != "en" {
		t.Fatalf("expected en, got %q", got)
	}
	if svc.SetLanguage(context.Background(), "en") {
		t.Fatalf("expected requests without session to be ignored")
	}
}

func TestPreferredLanguageOrderPutsActiveFirst(t *testing.T) {
	svc := newService(t, "")
	ctx := session.WithSession(context.Background(), session.New())
	svc.SetLanguage(ctx, "fr")

	got := strings.Join(svc.PreferredLanguageOrder(ctx), ",")
	if got != "fr,de,en" {
		t.Fatalf("unexpected order %q", got)
	}
	if strings.Join(svc.Languages(), ",") != "de,en,fr" {
		t.Fatalf("configured languages must not be reordered")
	}
}

func TestTranslate(t *testing.T) {
	dir := t.TempDir()
	writeLanguage(t, dir, "de", `{"welcome":"Willkommen","greeting":"Hallo, %s!","count":3}`)
	writeLanguage(t, dir, "en", `{"welcome":"Welcome"}`)

	svc := newService(t, dir)
	err := svc.Load(context.Background())
	if err == nil || !strings.Contains(err.Error(), "fr") {
		t.Fatalf("expected missing fr file to be reported, got %v", err)
	}

	cases := []struct {
		locale string
		key    string
		args   []any
		want   string
	}{
		{"en", "welcome", nil, "Welcome"},
		{"", "welcome", nil, "Willkommen"},
		{"de", "greeting", []any{"Ada"}, "Hallo, Ada!"},
		{"de", "count", nil, "3"},
		{"en", "missing.key", nil, "missing.key"},
		{"en", "missing.key", []any{"Ada"}, "missing.key"},
		{"fr", "welcome", nil, "welcome"},
	}
	for _, tc := range cases {
		got, err := svc.Translate(tc.locale, tc.key, tc.args...)
		if err != nil {
			t.Fatalf("translate %s/%s: %v", tc.locale, tc.key, err)
		}
		if got != tc.want {
			t.Fatalf("translate %s/%s: expected %q, got %q", tc.locale, tc.key, tc.want, got)
		}
	}
}

func TestWatchReloadsChangedFiles(t *testing.T) {
	dir := t.TempDir()
	writeLanguage(t, dir, "de", `{"welcome":"Willkommen"}`)

	cfg := runtimeconfig.DefaultConfig()
	cfg.Languages = []string{"de"}
	cfg.LanguageDirectory = dir
	svc := New(cfg)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Watch(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		writeLanguage(t, dir, "de", `{"welcome":"Servus"}`)
		time.Sleep(200 * time.Millisecond)
		if got, _ := svc.Translate("de", "welcome"); got == "Servus" {
			return
		}
	}
	t.Fatalf("expected catalog to reload after file change")
}

func TestIsLanguageFile(t *testing.T) {
	if !isLanguageFile("/tmp/lang-en.json") || isLanguageFile("/tmp/en.json") || isLanguageFile("/tmp/lang-en.json.swp") {
		t.Fatalf("unexpected language file detection")
	}
}
