package assets

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lumagen/lumagen/internal/api"
	"github.com/lumagen/lumagen/internal/imagefile"
	"github.com/lumagen/lumagen/internal/output"
	"github.com/rs/zerolog"
)

func encodePNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type stubDownloader struct {
	data []byte
	urls []string
}

func (d *stubDownloader) Download(_ context.Context, rawURL string) ([]byte, imagefile.Format, error) {
	d.urls = append(d.urls, rawURL)
	return d.data, imagefile.PNG, nil
}

func newTestService(t *testing.T, handler http.HandlerFunc) (*Service, *stubDownloader, string) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	root := t.TempDir()
	dl := &stubDownloader{data: encodePNG(t)}
	svc := NewService(
		api.NewClient(srv.URL, "key", false, zerolog.Nop()),
		dl,
		output.NewStore(root, nil, zerolog.Nop()),
		zerolog.Nop(),
	)
	return svc, dl, root
}

func imagesResponse(urls ...string) api.ImagesResponse {
	var resp api.ImagesResponse
	for _, u := range urls {
		resp.Data = append(resp.Data, api.GeneratedImage{URL: u, Prompt: "p", Seed: 1})
	}
	return resp
}

func TestGenerateSavesAllResults(t *testing.T) {
	svc, dl, root := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(imagesResponse(
			"https://cdn.example.com/a.png",
			"https://cdn.example.com/b.png",
		))
	})

	paths, err := svc.Generate(context.Background(), api.GenerateRequest{Prompt: "p"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("got %d paths, want 2", len(paths))
	}
	if len(dl.urls) != 2 {
		t.Errorf("downloader called %d times, want 2", len(dl.urls))
	}
	for _, p := range paths {
		if !strings.HasPrefix(p, filepath.Join(root, "generate")) {
			t.Errorf("path %q outside generate subdirectory", p)
		}
		if _, err := os.Stat(p); err != nil {
			t.Errorf("saved image missing: %v", err)
		}
	}
}

func TestGenerateBatchAbortsOnFirstError(t *testing.T) {
	var calls int
	svc, _, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req api.GenerateRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Prompt == "bad" {
			http.Error(w, `{"error":{"message":"nope"}}`, http.StatusUnprocessableEntity)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(imagesResponse("https://cdn.example.com/a.png"))
	})

	_, err := svc.GenerateBatch(context.Background(),
		[]string{"good", "bad", "never-sent"}, api.GenerateRequest{})
	if err == nil {
		t.Fatal("expected batch to fail")
	}
	if !strings.Contains(err.Error(), "prompt 2") {
		t.Errorf("error %q does not attribute the failing item", err.Error())
	}
	if calls != 2 {
		t.Errorf("API called %d times, want 2 (batch aborts on first failure)", calls)
	}
}

func TestLoadInputRoutesURLsThroughDownloader(t *testing.T) {
	svc, dl, _ := newTestService(t, nil)

	_, format, err := svc.LoadInput(context.Background(), "https://cdn.example.com/in.png")
	if err != nil {
		t.Fatalf("LoadInput(url) error = %v", err)
	}
	if format != imagefile.PNG {
		t.Errorf("format = %v", format)
	}
	if len(dl.urls) != 1 || dl.urls[0] != "https://cdn.example.com/in.png" {
		t.Errorf("downloader urls = %v", dl.urls)
	}
}

func TestLoadInputReadsLocalPaths(t *testing.T) {
	svc, dl, _ := newTestService(t, nil)

	path := filepath.Join(t.TempDir(), "in.png")
	if err := os.WriteFile(path, encodePNG(t), 0o644); err != nil {
		t.Fatal(err)
	}

	data, format, err := svc.LoadInput(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadInput(path) error = %v", err)
	}
	if format != imagefile.PNG || len(data) == 0 {
		t.Errorf("unexpected result: format=%v len=%d", format, len(data))
	}
	if len(dl.urls) != 0 {
		t.Errorf("downloader should not be used for local paths, got %v", dl.urls)
	}
}

func TestDescribeReturnsCaptions(t *testing.T) {
	svc, _, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"descriptions": []map[string]string{{"text": "a red boat"}, {"text": "a harbor"}},
		})
	})

	path := filepath.Join(t.TempDir(), "in.png")
	if err := os.WriteFile(path, encodePNG(t), 0o644); err != nil {
		t.Fatal(err)
	}

	texts, err := svc.Describe(context.Background(), path)
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if len(texts) != 2 || texts[0] != "a red boat" {
		t.Errorf("texts = %v", texts)
	}
}
