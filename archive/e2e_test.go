package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aluiziolira/go-xkcd-archive/config"
	"github.com/aluiziolira/go-xkcd-archive/fetcher"
	"github.com/jarcoal/httpmock"
)

// TestArchive_Integration runs the real fetcher against a mock
// transport: one comic, archived once, untouched on the second run.
func TestArchive_Integration(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BaseURL = "http://example.test"
	cfg.OutputDir = t.TempDir()

	comicJSON := `{"num":1,"year":"2006","month":"1","day":"1","safe_title":"Test","img":"http://x/test.png"}`
	imageBytes := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "http://example.test/info.0.json",
		httpmock.NewStringResponder(200, comicJSON))
	transport.RegisterResponder("GET", "http://example.test/1/info.0.json",
		httpmock.NewStringResponder(200, comicJSON))
	transport.RegisterResponder("GET", "http://x/test.png",
		httpmock.NewBytesResponder(200, imageBytes))

	run := func() {
		t.Helper()

		metrics := fetcher.NewMetrics()
		f, err := fetcher.New(cfg, metrics)
		if err != nil {
			t.Fatalf("new fetcher: %v", err)
		}
		f.WithTransport(transport)

		store, err := NewStore(cfg)
		if err != nil {
			t.Fatalf("new store: %v", err)
		}

		a := NewArchiver(cfg, f, store, metrics, nil)
		result, err := a.Run(context.Background())
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if result.ErrorCount != 0 {
			t.Fatalf("errors = %d (%v), want 0", result.ErrorCount, result.ErrorsByType)
		}
	}

	run()

	path := filepath.Join(cfg.OutputDir, "2006", "(2006-01-01) Test.png")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected archived file at %s: %v", path, err)
	}
	if string(data) != string(imageBytes) {
		t.Fatalf("archived bytes = %v, want %v", data, imageBytes)
	}
	if got := transport.GetCallCountInfo()["GET http://x/test.png"]; got != 1 {
		t.Fatalf("image requests = %d, want 1", got)
	}

	// Second run over the same output tree with a fresh store: the
	// file on disk is the completion marker, so the image must not be
	// requested or rewritten.
	before, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}

	run()

	if got := transport.GetCallCountInfo()["GET http://x/test.png"]; got != 1 {
		t.Fatalf("image requests after rerun = %d, want 1", got)
	}
	after, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat after rerun: %v", err)
	}
	if !after.ModTime().Equal(before.ModTime()) || after.Size() != before.Size() {
		t.Fatalf("existing file was touched on rerun")
	}
}
