package decode

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/KabirAcharya/riqpreview/internal/sniff"
)

// DefaultTimeout bounds one decode; past it the decode is a hard failure
const DefaultTimeout = 30 * time.Second

// Bridge decodes raw audio bytes into playable buffers. The decoders consume
// file-backed input, so every call round-trips the payload through a
// transient temporary file which is removed afterwards on every path.
type Bridge struct {
	fs       afero.Fs
	registry *Registry
	tempDir  string
	timeout  time.Duration
}

// NewBridge creates a decode bridge writing its temp files under tempDir
func NewBridge(fs afero.Fs, registry *Registry, tempDir string) *Bridge {
	slog.Debug("creating decode bridge", "temp_dir", tempDir)
	return &Bridge{
		fs:       fs,
		registry: registry,
		tempDir:  tempDir,
		timeout:  DefaultTimeout,
	}
}

// Decode turns raw bytes of a sniffed encoding into a PCM buffer. The worker
// identifier keeps temp filenames unique when multiple decodes are in
// flight. EncodingUnknown short-circuits to failure without touching disk.
func (b *Bridge) Decode(ctx context.Context, raw []byte, enc sniff.Encoding, worker int) (*AudioData, error) {
	if enc == sniff.EncodingUnknown {
		slog.Debug("decode rejected: unknown encoding", "bytes", len(raw))
		return nil, ErrUnsupportedFormat
	}

	decoder := b.registry.ForEncoding(enc)
	if decoder == nil {
		slog.Warn("no decoder registered for encoding", "encoding", enc.String())
		return nil, ErrUnsupportedFormat
	}

	if err := b.fs.MkdirAll(b.tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp dir %s: %w", b.tempDir, err)
	}

	name := fmt.Sprintf("preview-w%d-%d%s", worker, time.Now().UnixNano(), enc.Ext())
	tmpPath := filepath.Join(b.tempDir, name)

	if err := afero.WriteFile(b.fs, tmpPath, raw, 0o600); err != nil {
		return nil, fmt.Errorf("write decode temp file %s: %w", tmpPath, err)
	}
	defer func() {
		if err := b.fs.Remove(tmpPath); err != nil {
			// Leaking a temp file is worth a log line, never an error
			slog.Warn("failed to remove decode temp file", "path", tmpPath, "error", err)
		}
	}()

	slog.Debug("decode temp file written",
		"path", tmpPath,
		"encoding", enc.String(),
		"bytes", len(raw))

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	type result struct {
		data *AudioData
		err  error
	}
	done := make(chan result, 1)

	go func() {
		// A panicking decoder must fail this decode, not the process
		defer func() {
			if r := recover(); r != nil {
				slog.Error("decoder panicked",
					"encoding", enc.String(),
					"worker", worker,
					"panic", r)
				done <- result{nil, ErrInvalidData}
			}
		}()

		file, err := b.fs.Open(tmpPath)
		if err != nil {
			done <- result{nil, fmt.Errorf("open decode temp file %s: %w", tmpPath, err)}
			return
		}
		defer file.Close()

		data, err := decoder.Decode(file)
		done <- result{data, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			slog.Warn("decode failed",
				"encoding", enc.String(),
				"worker", worker,
				"error", res.err)
			return nil, res.err
		}
		return res.data, nil
	case <-ctx.Done():
		slog.Error("decode timed out or was cancelled",
			"encoding", enc.String(),
			"worker", worker,
			"timeout", b.timeout,
			"error", ctx.Err())
		return nil, fmt.Errorf("decode %s: %w", enc.String(), ctx.Err())
	}
}
