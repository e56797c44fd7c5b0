// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch downloads and validates remote images into a scoped
// temporary cache. Failures are per-item values; the batch as a whole
// never fails.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/biladi/heritage-report/internal/drivelink"
	"github.com/biladi/heritage-report/internal/httputil"
	"github.com/biladi/heritage-report/pkg/types"
)

// FailReason classifies a per-image acquisition failure.
type FailReason string

const (
	FailTimeout       FailReason = "timeout"
	FailTooLarge      FailReason = "too-large"
	FailInvalidFormat FailReason = "invalid-format"
	FailNetwork       FailReason = "network-error"
)

// Asset is the acquisition outcome for one reference. On success Path
// points into the engine's temp scope and Format/Width/Height describe the
// validated content; on failure Reason and Detail explain why.
type Asset struct {
	Ref    drivelink.Reference
	Path   string
	Format string // "jpg" or "png"
	Width  int
	Height int
	Size   int64

	Reason FailReason
	Detail string
}

// OK reports whether the asset was acquired and validated.
func (a *Asset) OK() bool {
	return a != nil && a.Reason == "" && a.Path != ""
}

// Stats aggregates batch counters for the end-of-run summary.
type Stats struct {
	Attempted int
	Succeeded int
	Failed    int
	ByReason  map[FailReason]int
}

// Engine fetches images with bounded parallelism into a temp directory
// that lives exactly as long as the engine. Close is safe to call on every
// exit path and removes every file the engine created.
type Engine struct {
	client *http.Client
	cfg    types.AcquisitionConfig

	tempDir string

	mu     sync.Mutex
	assets map[string]*Asset
	stats  Stats
	closed bool
}

const (
	defaultMaxImageBytes = 20 << 20
	defaultWorkers       = 4
)

// NewEngine creates the engine and its scoped temp directory. Callers must
// defer Close before issuing any fetch.
func NewEngine(client *http.Client, cfg types.AcquisitionConfig) (*Engine, error) {
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = defaultMaxImageBytes
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	dir, err := os.MkdirTemp("", "heritage-report-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp directory: %w", err)
	}
	return &Engine{
		client:  client,
		cfg:     cfg,
		tempDir: dir,
		assets:  make(map[string]*Asset),
		stats:   Stats{ByReason: make(map[FailReason]int)},
	}, nil
}

// Close removes the temp scope and everything in it. Idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return os.RemoveAll(e.tempDir)
}

// AcquireAll fetches every reference with bounded parallelism and returns
// the outcome map keyed by canonical file ID. Duplicate IDs fetch once.
// Per-item failures are recorded in the map; AcquireAll itself never
// fails. Progress lines go to w.
func (e *Engine) AcquireAll(ctx context.Context, refs []drivelink.Reference, w io.Writer) map[string]*Asset {
	unique := make([]drivelink.Reference, 0, len(refs))
	seen := make(map[string]bool, len(refs))
	for _, ref := range refs {
		if seen[ref.FileID] {
			continue
		}
		seen[ref.FileID] = true
		unique = append(unique, ref)
	}

	var g errgroup.Group
	g.SetLimit(e.cfg.Workers)
	for _, ref := range unique {
		ref := ref
		g.Go(func() error {
			asset := e.fetchOne(ctx, ref)
			e.record(asset, w)
			return nil
		})
	}
	g.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]*Asset, len(e.assets))
	for id, a := range e.assets {
		out[id] = a
	}
	return out
}

// record stores the asset and updates counters under one lock, so fetch
// order cannot affect the result mapping or the stats.
func (e *Engine) record(asset *Asset, w io.Writer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.assets[asset.Ref.FileID] = asset
	e.stats.Attempted++
	if asset.OK() {
		e.stats.Succeeded++
		fmt.Fprintf(w, "downloaded: %s (%s, %d bytes)\n", asset.Ref.FileID, asset.Format, asset.Size)
	} else {
		e.stats.Failed++
		e.stats.ByReason[asset.Reason]++
		fmt.Fprintf(w, "failed: %s (%s: %s)\n", asset.Ref.FileID, asset.Reason, asset.Detail)
	}
}

// Stats returns a copy of the batch counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := Stats{
		Attempted: e.stats.Attempted,
		Succeeded: e.stats.Succeeded,
		Failed:    e.stats.Failed,
		ByReason:  make(map[FailReason]int, len(e.stats.ByReason)),
	}
	for r, n := range e.stats.ByReason {
		s.ByReason[r] = n
	}
	return s
}

// confirmTokenPattern extracts the confirmation token from the Drive
// virus-scan interstitial page.
var confirmTokenPattern = regexp.MustCompile(`confirm=([a-zA-Z0-9_-]+)`)

// fetchOne runs the bounded download state machine for one reference:
// initial request, at most one confirmation hop, final validation.
func (e *Engine) fetchOne(ctx context.Context, ref drivelink.Reference) *Asset {
	asset := &Asset{Ref: ref}

	data, err := e.download(ctx, drivelink.DownloadURL(ref))
	if err != nil {
		return failed(asset, err)
	}

	if looksLikeHTML(data) {
		token := extractConfirmToken(data)
		if token == "" {
			asset.Reason = FailInvalidFormat
			asset.Detail = "response is an HTML page with no confirmation token"
			return asset
		}
		data, err = e.download(ctx, drivelink.ConfirmURL(ref, token))
		if err != nil {
			return failed(asset, err)
		}
		if looksLikeHTML(data) {
			asset.Reason = FailInvalidFormat
			asset.Detail = "still an HTML page after confirmation hop"
			return asset
		}
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || (format != "jpeg" && format != "png") {
		asset.Reason = FailInvalidFormat
		if err != nil {
			asset.Detail = "content does not decode as an image"
		} else {
			asset.Detail = fmt.Sprintf("unsupported image format %q", format)
		}
		return asset
	}

	ext := "png"
	if format == "jpeg" {
		ext = "jpg"
	}
	path, err := e.writeTemp(ref.FileID, ext, data)
	if err != nil {
		asset.Reason = FailNetwork
		asset.Detail = err.Error()
		return asset
	}

	asset.Path = path
	asset.Format = ext
	asset.Width = cfg.Width
	asset.Height = cfg.Height
	asset.Size = int64(len(data))
	return asset
}

// fetchError carries a classified failure out of download.
type fetchError struct {
	reason FailReason
	detail string
}

func (e *fetchError) Error() string { return fmt.Sprintf("%s: %s", e.reason, e.detail) }

func failed(asset *Asset, err error) *Asset {
	var fe *fetchError
	if errors.As(err, &fe) {
		asset.Reason = fe.reason
		asset.Detail = fe.detail
	} else {
		asset.Reason = FailNetwork
		asset.Detail = err.Error()
	}
	return asset
}

// download performs one GET with the per-request timeout and the size
// ceiling applied while reading.
func (e *Engine) download(ctx context.Context, url string) ([]byte, error) {
	reqCtx := ctx
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &fetchError{reason: FailNetwork, detail: err.Error()}
	}
	if e.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", e.cfg.UserAgent)
	}

	resp, err := httputil.DoWithRetry(reqCtx, e.client, req, e.cfg.MaxRetries)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &fetchError{reason: FailNetwork, detail: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, e.cfg.MaxImageBytes+1))
	if err != nil {
		return nil, classifyTransport(err)
	}
	if int64(len(data)) > e.cfg.MaxImageBytes {
		return nil, &fetchError{reason: FailTooLarge, detail: fmt.Sprintf("exceeds %d byte ceiling", e.cfg.MaxImageBytes)}
	}
	return data, nil
}

func classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &fetchError{reason: FailTimeout, detail: "request exceeded timeout"}
	}
	if os.IsTimeout(err) {
		return &fetchError{reason: FailTimeout, detail: err.Error()}
	}
	return &fetchError{reason: FailNetwork, detail: err.Error()}
}

// looksLikeHTML detects the Drive interstitial page by content signature.
func looksLikeHTML(data []byte) bool {
	head := bytes.TrimSpace(data)
	if len(head) > 256 {
		head = head[:256]
	}
	lower := bytes.ToLower(head)
	return bytes.HasPrefix(lower, []byte("<!doctype")) || bytes.HasPrefix(lower, []byte("<html"))
}

func extractConfirmToken(data []byte) string {
	if m := confirmTokenPattern.FindSubmatch(data); m != nil {
		return string(m[1])
	}
	return ""
}

// writeTemp lands validated bytes in the engine's temp scope using the
// temp-file-then-rename discipline so partial writes never survive.
func (e *Engine) writeTemp(fileID, ext string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(e.tempDir, ".download-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing image: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing temp file: %w", closeErr)
	}

	final := filepath.Join(e.tempDir, sanitizeID(fileID)+"."+ext)
	if err := os.Rename(tmpPath, final); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("renaming temp file: %w", err)
	}
	return final, nil
}

// sanitizeID keeps temp filenames within the URL-safe alphabet file IDs
// already use; anything else is defanged.
func sanitizeID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}

// ExportTo copies every successful asset out of the temp scope into dir,
// named <prefix>_<n>_<id-head>.<ext> in file-ID order. Returns the number
// copied.
func (e *Engine) ExportTo(dir, prefix string) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("creating export directory: %w", err)
	}

	e.mu.Lock()
	ok := make([]*Asset, 0, len(e.assets))
	for _, a := range e.assets {
		if a.OK() {
			ok = append(ok, a)
		}
	}
	e.mu.Unlock()
	sort.Slice(ok, func(i, j int) bool { return ok[i].Ref.FileID < ok[j].Ref.FileID })

	copied := 0
	for i, a := range ok {
		idHead := a.Ref.FileID
		if len(idHead) > 8 {
			idHead = idHead[:8]
		}
		name := fmt.Sprintf("%s_%d_%s.%s", prefix, i+1, sanitizeID(idHead), a.Format)
		data, err := os.ReadFile(a.Path)
		if err != nil {
			return copied, fmt.Errorf("reading %s: %w", a.Path, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return copied, fmt.Errorf("writing %s: %w", name, err)
		}
		copied++
	}
	return copied, nil
}
