// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biladi/heritage-report/internal/drivelink"
	"github.com/biladi/heritage-report/pkg/types"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

// pointDownloadBase routes drivelink download URLs at a test server for
// the duration of one test.
func pointDownloadBase(t *testing.T, ts *httptest.Server) {
	t.Helper()
	old := drivelink.DownloadBase
	drivelink.DownloadBase = ts.URL + "/uc?export=download"
	t.Cleanup(func() { drivelink.DownloadBase = old })
}

func newTestEngine(t *testing.T, cfg types.AcquisitionConfig) *Engine {
	t.Helper()
	e, err := NewEngine(http.DefaultClient, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func acquireOne(t *testing.T, e *Engine, id string) *Asset {
	t.Helper()
	refs := []drivelink.Reference{{FileID: id, Source: drivelink.SourceBareID}}
	assets := e.AcquireAll(context.Background(), refs, io.Discard)
	require.Contains(t, assets, id)
	return assets[id]
}

func TestAcquireValidPNG(t *testing.T) {
	body := pngBytes(t, 4, 3)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(body)
	}))
	defer ts.Close()
	pointDownloadBase(t, ts)

	e := newTestEngine(t, types.AcquisitionConfig{})
	asset := acquireOne(t, e, "fileA")

	require.True(t, asset.OK(), "asset failed: %s %s", asset.Reason, asset.Detail)
	assert.Equal(t, "png", asset.Format)
	assert.Equal(t, 4, asset.Width)
	assert.Equal(t, 3, asset.Height)
	assert.FileExists(t, asset.Path)

	stats := e.Stats()
	assert.Equal(t, 1, stats.Attempted)
	assert.Equal(t, 1, stats.Succeeded)
	assert.Equal(t, 0, stats.Failed)
}

func TestAcquireValidJPEG(t *testing.T) {
	body := jpegBytes(t, 2, 2)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(body)
	}))
	defer ts.Close()
	pointDownloadBase(t, ts)

	e := newTestEngine(t, types.AcquisitionConfig{})
	asset := acquireOne(t, e, "fileB")

	require.True(t, asset.OK())
	assert.Equal(t, "jpg", asset.Format)
}

func TestAcquireFollowsInterstitialOnce(t *testing.T) {
	body := pngBytes(t, 1, 1)
	interstitial := `<!DOCTYPE html><html><body>
		Google Drive can't scan this file for viruses.
		<a href="/uc?export=download&amp;id=fileC&amp;confirm=tok123">Download anyway</a>
	</body></html>`

	var confirmed bool
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("confirm") == "tok123" {
			confirmed = true
			w.Write(body)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, interstitial)
	}))
	defer ts.Close()
	pointDownloadBase(t, ts)

	e := newTestEngine(t, types.AcquisitionConfig{})
	asset := acquireOne(t, e, "fileC")

	require.True(t, asset.OK(), "asset failed: %s %s", asset.Reason, asset.Detail)
	assert.True(t, confirmed, "confirmation hop was not followed")
}

func TestAcquireInterstitialLoopGivesUp(t *testing.T) {
	// The confirmation hop keeps returning HTML; the engine must stop
	// after one hop and record invalid-format.
	var calls int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, `<html><body><a href="?confirm=tok">again</a></body></html>`)
	}))
	defer ts.Close()
	pointDownloadBase(t, ts)

	e := newTestEngine(t, types.AcquisitionConfig{})
	asset := acquireOne(t, e, "fileD")

	require.False(t, asset.OK())
	assert.Equal(t, FailInvalidFormat, asset.Reason)
	assert.Equal(t, 2, calls, "expected exactly one confirmation hop")
}

func TestAcquireRejectsNonImageContent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Claims to be a PNG but is not.
		w.Header().Set("Content-Type", "image/png")
		io.WriteString(w, "this is not an image")
	}))
	defer ts.Close()
	pointDownloadBase(t, ts)

	e := newTestEngine(t, types.AcquisitionConfig{})
	asset := acquireOne(t, e, "fileE")

	require.False(t, asset.OK())
	assert.Equal(t, FailInvalidFormat, asset.Reason)
	assert.Equal(t, 1, e.Stats().ByReason[FailInvalidFormat])
}

func TestAcquireEnforcesSizeCeiling(t *testing.T) {
	body := pngBytes(t, 64, 64)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(body)
	}))
	defer ts.Close()
	pointDownloadBase(t, ts)

	e := newTestEngine(t, types.AcquisitionConfig{MaxImageBytes: 16})
	asset := acquireOne(t, e, "fileF")

	require.False(t, asset.OK())
	assert.Equal(t, FailTooLarge, asset.Reason)
}

func TestAcquireTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer ts.Close()
	pointDownloadBase(t, ts)

	cfg := types.AcquisitionConfig{}
	cfg.Timeout = 30 * time.Millisecond
	e := newTestEngine(t, cfg)
	asset := acquireOne(t, e, "fileG")

	require.False(t, asset.OK())
	assert.Equal(t, FailTimeout, asset.Reason)
}

func TestAcquireHTTPErrorIsNetworkFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()
	pointDownloadBase(t, ts)

	e := newTestEngine(t, types.AcquisitionConfig{})
	asset := acquireOne(t, e, "fileH")

	require.False(t, asset.OK())
	assert.Equal(t, FailNetwork, asset.Reason)
}

func TestAcquireIsolatesPerItemFailures(t *testing.T) {
	body := pngBytes(t, 1, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") == "bad" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write(body)
	}))
	defer ts.Close()
	pointDownloadBase(t, ts)

	e := newTestEngine(t, types.AcquisitionConfig{})
	refs := []drivelink.Reference{
		{FileID: "good1"}, {FileID: "bad"}, {FileID: "good2"},
	}
	assets := e.AcquireAll(context.Background(), refs, io.Discard)

	assert.True(t, assets["good1"].OK())
	assert.True(t, assets["good2"].OK())
	assert.False(t, assets["bad"].OK())

	stats := e.Stats()
	assert.Equal(t, 3, stats.Attempted)
	assert.Equal(t, 2, stats.Succeeded)
	assert.Equal(t, 1, stats.Failed)
}

func TestAcquireDeduplicatesFileIDs(t *testing.T) {
	body := pngBytes(t, 1, 1)
	var calls int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Write(body)
	}))
	defer ts.Close()
	pointDownloadBase(t, ts)

	e := newTestEngine(t, types.AcquisitionConfig{Workers: 1})
	refs := []drivelink.Reference{
		{FileID: "same", Source: drivelink.SourcePath},
		{FileID: "same", Source: drivelink.SourceQuery},
	}
	assets := e.AcquireAll(context.Background(), refs, io.Discard)

	assert.Len(t, assets, 1)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, e.Stats().Attempted)
}

func TestCloseRemovesTempScope(t *testing.T) {
	body := pngBytes(t, 1, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(body)
	}))
	defer ts.Close()
	pointDownloadBase(t, ts)

	e, err := NewEngine(http.DefaultClient, types.AcquisitionConfig{})
	require.NoError(t, err)
	asset := acquireOne(t, e, "fileI")
	require.True(t, asset.OK())
	tempDir := filepath.Dir(asset.Path)

	require.NoError(t, e.Close())
	_, statErr := os.Stat(tempDir)
	assert.True(t, os.IsNotExist(statErr), "temp scope should be removed on Close")

	// Close is idempotent.
	assert.NoError(t, e.Close())
}

func TestExportTo(t *testing.T) {
	body := pngBytes(t, 1, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") == "bad" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(body)
	}))
	defer ts.Close()
	pointDownloadBase(t, ts)

	e := newTestEngine(t, types.AcquisitionConfig{})
	refs := []drivelink.Reference{{FileID: "okA"}, {FileID: "bad"}}
	e.AcquireAll(context.Background(), refs, io.Discard)

	dir := filepath.Join(t.TempDir(), "export")
	n, err := e.ExportTo(dir, "old_fort")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "old_fort_1_")
}
