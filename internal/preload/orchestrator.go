// Package preload drives the end-to-end pipeline that turns a catalog of
// song archives into ready-to-play in-memory buffers: disk-cache lookup,
// archive extraction on background workers, disk-cache write, decode.
package preload

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/KabirAcharya/riqpreview/internal/catalog"
	"github.com/KabirAcharya/riqpreview/internal/decode"
	"github.com/KabirAcharya/riqpreview/internal/diskcache"
	"github.com/KabirAcharya/riqpreview/internal/riq"
	"github.com/KabirAcharya/riqpreview/internal/sniff"
)

// ErrBusy reports that a batch is already running; the new request is
// ignored, not queued
var ErrBusy = errors.New("preload batch already running")

// Event is one progress notification from a running batch. Processed is
// non-decreasing within a batch and reaches Total before the single final
// event with Done set. The channel is closed after that event.
type Event struct {
	Processed int
	Total     int
	Label     string
	Done      bool
}

// Stats summarizes one finished batch
type Stats struct {
	Total    int
	Loaded   int
	Failed   int
	Elapsed  time.Duration
	FromDisk int // songs whose raw bytes came from the disk cache
}

// Orchestrator runs preload batches, one at a time
type Orchestrator struct {
	cache   *diskcache.Cache
	bridge  *decode.Bridge
	extract func(path string, alternate bool) ([]byte, string, error)
	workers int
	pace    time.Duration

	// OnComplete, when set, receives the stats of every finished batch
	OnComplete func(Stats)

	mu      sync.Mutex
	running bool
}

// NewOrchestrator creates an orchestrator over the given cache and bridge
func NewOrchestrator(cache *diskcache.Cache, bridge *decode.Bridge) *Orchestrator {
	workers := runtime.NumCPU()
	if workers > 4 {
		workers = 4
	}

	slog.Debug("creating preload orchestrator", "workers", workers)
	return &Orchestrator{
		cache:   cache,
		bridge:  bridge,
		extract: riq.ExtractAudio,
		workers: workers,
	}
}

// Running reports whether a batch is currently in flight
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// Start begins a preload batch over songs and returns its event stream.
// Returns ErrBusy while another batch runs. The stream always terminates in
// exactly one Done event, after which it is closed, regardless of how many
// songs failed.
func (o *Orchestrator) Start(ctx context.Context, songs []*catalog.Song) (<-chan Event, error) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		slog.Info("preload request ignored, batch already running")
		return nil, ErrBusy
	}
	o.running = true
	o.mu.Unlock()

	// Sized so the batch never blocks on a slow or absent consumer:
	// at most one event per song per phase plus the terminal pair.
	events := make(chan Event, 2*len(songs)+4)

	go o.run(ctx, songs, events)

	return events, nil
}

func (o *Orchestrator) run(ctx context.Context, songs []*catalog.Song, events chan<- Event) {
	started := time.Now()
	total := len(songs)
	stats := Stats{Total: total}

	defer func() {
		events <- Event{Processed: total, Total: total, Done: true}
		close(events)

		o.mu.Lock()
		o.running = false
		o.mu.Unlock()

		stats.Elapsed = time.Since(started)
		slog.Info("preload batch finished",
			"total", stats.Total,
			"loaded", stats.Loaded,
			"failed", stats.Failed,
			"from_disk", stats.FromDisk,
			"elapsed", stats.Elapsed)

		if o.OnComplete != nil {
			o.OnComplete(stats)
		}
	}()

	slog.Info("preload batch starting", "songs", total)

	// Scanning: partition by disk-cache presence
	var needExtraction []*catalog.Song
	for _, song := range songs {
		if song.Ready() {
			continue
		}
		if _, ok := o.cache.Lookup(song.ArchivePath); !ok {
			needExtraction = append(needExtraction, song)
		}
	}

	slog.Debug("preload scan complete",
		"total", total,
		"need_extraction", len(needExtraction))

	// Extracting: background workers fill the disk cache. Progress events
	// here carry labels only; Processed advances in the loading phase.
	if len(needExtraction) > 0 && ctx.Err() == nil {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(o.workers)

		for _, song := range needExtraction {
			song := song
			g.Go(func() error {
				if gctx.Err() != nil {
					return nil
				}

				data, entry, err := o.extract(song.ArchivePath, song.Alternate)
				if err != nil {
					// One bad archive never aborts the batch
					slog.Warn("extraction failed",
						"archive", song.ArchivePath,
						"error", err)
					return nil
				}

				if _, err := o.cache.Store(song.ArchivePath, data); err != nil {
					slog.Error("cache store failed",
						"archive", song.ArchivePath,
						"error", err)
					return nil
				}

				slog.Debug("extracted to cache",
					"archive", song.ArchivePath,
					"entry", entry,
					"bytes", len(data))
				events <- Event{Total: total, Label: song.Title}
				return nil
			})
		}

		// Workers only report nil; Wait is for completion, not errors
		_ = g.Wait()
	}

	// Loading: decode every song in original order and attach buffers.
	// All Song mutation happens here, in this single goroutine.
	processed := 0
	for _, song := range songs {
		if ctx.Err() != nil {
			slog.Warn("preload batch cancelled", "processed", processed, "total", total)
			return
		}

		o.loadOne(ctx, song, &stats)

		processed++
		events <- Event{Processed: processed, Total: total, Label: song.Title}

		// Pacing between items so a cooperative host keeps its frame budget
		if o.pace > 0 {
			time.Sleep(o.pace)
		} else {
			runtime.Gosched()
		}
	}
}

// loadOne attaches a decoded buffer to song, sourcing raw bytes from the
// disk cache when possible and falling back to direct extraction. Failures
// are absorbed: the song is simply left without a buffer.
func (o *Orchestrator) loadOne(ctx context.Context, song *catalog.Song, stats *Stats) {
	if song.Ready() {
		stats.Loaded++
		return
	}

	var raw []byte
	if _, ok := o.cache.Lookup(song.ArchivePath); ok {
		data, err := o.cache.Read(song.ArchivePath)
		if err != nil {
			slog.Warn("cache read failed, falling back to extraction",
				"archive", song.ArchivePath,
				"error", err)
		} else {
			raw = data
			stats.FromDisk++
		}
	}

	if raw == nil {
		data, _, err := o.extract(song.ArchivePath, song.Alternate)
		if err != nil {
			slog.Warn("song left unloaded, extraction failed",
				"archive", song.ArchivePath,
				"error", err)
			stats.Failed++
			return
		}
		raw = data
	}

	enc := sniff.Classify(raw)
	buf, err := o.bridge.Decode(ctx, raw, enc, 0)
	if err != nil {
		slog.Warn("song left unloaded, decode failed",
			"archive", song.ArchivePath,
			"encoding", enc.String(),
			"error", err)
		stats.Failed++
		return
	}

	song.SetAudio(buf)
	stats.Loaded++

	slog.Debug("song loaded",
		"archive", song.ArchivePath,
		"encoding", enc.String(),
		"duration_ms", buf.Duration().Milliseconds())
}
