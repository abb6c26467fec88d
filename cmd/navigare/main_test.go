package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vango-dev/navigare/internal/config"
	"github.com/vango-dev/navigare/internal/errors"
	"github.com/vango-dev/navigare/pkg/navtest"
	"github.com/vango-dev/navigare/pkg/page"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixtureConfig(t *testing.T) *config.Config {
	t.Helper()
	srv := navtest.New(navtest.WithLogger(quietLogger())).Start()
	t.Cleanup(srv.Close)
	cfg := config.New()
	cfg.BaseURL = srv.URL
	return cfg
}

func TestRunVisitLoadsDeferredProperties(t *testing.T) {
	cfg := fixtureConfig(t)

	var stdout, stderr bytes.Buffer
	f := visitFlags{from: "/", method: "get", data: `{"sort":"name"}`, events: true, components: true}
	if err := runVisit(context.Background(), &stdout, &stderr, quietLogger(), cfg, f, []string{"/users"}); err != nil {
		t.Fatalf("runVisit() error = %v\nstderr: %s", err, stderr.String())
	}

	var p page.Page
	if err := json.Unmarshal(stdout.Bytes(), &p); err != nil {
		t.Fatalf("output is not a page: %v\n%s", err, stdout.String())
	}
	if p.Location.Pathname != "/users" || p.Location.Search != "?sort=name" {
		t.Errorf("page location = %s%s, want /users?sort=name", p.Location.Pathname, p.Location.Search)
	}
	stats, _ := p.Properties["stats"].(map[string]any)
	if stats["total"] != float64(3) {
		t.Errorf("stats = %v, want deferred stats loaded", p.Properties["stats"])
	}

	log := stderr.String()
	for _, want := range []string{"start", "success", "users.index -> users.index"} {
		if !strings.Contains(log, want) {
			t.Errorf("stderr missing %q:\n%s", want, log)
		}
	}
}

func TestRunVisitReportsInvalidResponse(t *testing.T) {
	cfg := fixtureConfig(t)

	var stdout, stderr bytes.Buffer
	err := runVisit(context.Background(), &stdout, &stderr, quietLogger(), cfg, visitFlags{from: "/", method: "GET"}, []string{"/plain"})
	if !errors.HasCode(err, "N010") {
		t.Errorf("runVisit() error = %v, want N010", err)
	}
	if stdout.Len() != 0 {
		t.Errorf("stdout = %q, want nothing on failure", stdout.String())
	}
}

func TestRunVisitWithBoltStorage(t *testing.T) {
	cfg := fixtureConfig(t)
	cfg.Storage = config.StorageConfig{Driver: "bolt", Path: filepath.Join(t.TempDir(), "state", "session.db")}

	var stdout, stderr bytes.Buffer
	if err := runVisit(context.Background(), &stdout, &stderr, quietLogger(), cfg, visitFlags{from: "/", method: "GET"}, []string{"/users/2"}); err != nil {
		t.Fatalf("runVisit() error = %v", err)
	}
	if _, err := os.Stat(cfg.Storage.Path); err != nil {
		t.Errorf("bolt file not created: %v", err)
	}
	if !strings.Contains(stdout.String(), "Grace Hopper") {
		t.Errorf("stdout missing user: %s", stdout.String())
	}
}

func TestVisitFlagsRejectBadInput(t *testing.T) {
	if _, err := (visitFlags{method: "GET", data: "{"}).options(); err == nil {
		t.Error("options() accepted malformed --data")
	}
	if _, err := (visitFlags{method: "GET", headers: []string{"novalue"}}).options(); err == nil {
		t.Error("options() accepted header without =")
	}
}

func TestOpenSessionRejectsNonProtocolEntry(t *testing.T) {
	cfg := fixtureConfig(t)
	_, err := openSession(context.Background(), cfg, quietLogger(), "/plain")
	if !errors.HasCode(err, "N010") {
		t.Errorf("openSession() error = %v, want N010", err)
	}
}

func TestVersionCommand(t *testing.T) {
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version", "--short"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != version {
		t.Errorf("version output = %q, want %q", got, version)
	}
}
