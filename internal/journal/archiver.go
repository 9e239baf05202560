// Package journal drains the durable signal and order streams into an
// object store so fills and decisions survive the bounded Redis retention.
// Batches are newline-delimited JSON, keyed by stream name and UTC date.
package journal

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/mzahran/scalpbot/internal/domain"
)

// readBatchSize bounds a single stream read during a flush pass.
const readBatchSize = 500

// Config controls what the archiver drains and how long uploads are kept.
type Config struct {
	// Streams maps a short journal name (used in object keys) to the Redis
	// stream it drains, e.g. "signals" -> "scalpbot:stream:signals".
	Streams map[string]string

	// Prefix is the leading path segment for all journal keys.
	Prefix string

	// Interval is the cadence of flush passes when running under Run.
	Interval time.Duration

	// RetentionDays prunes journal objects older than this many days.
	// Zero disables pruning.
	RetentionDays int
}

// Archiver copies new stream entries to object storage and prunes expired
// uploads. Cursors are kept in memory, so after a restart the first pass
// re-reads from the stream head; keys embed the first entry ID, making
// replays overwrite rather than duplicate.
type Archiver struct {
	bus     domain.SignalBus
	writer  domain.BlobWriter
	reader  domain.BlobReader
	cfg     Config
	cursors map[string]string
	logger  *slog.Logger
}

// NewArchiver creates an Archiver. The reader may be nil, which disables
// retention pruning.
func NewArchiver(bus domain.SignalBus, writer domain.BlobWriter, reader domain.BlobReader, cfg Config, logger *slog.Logger) *Archiver {
	if cfg.Prefix == "" {
		cfg.Prefix = "journal"
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	return &Archiver{
		bus:     bus,
		writer:  writer,
		reader:  reader,
		cfg:     cfg,
		cursors: make(map[string]string, len(cfg.Streams)),
		logger:  logger.With(slog.String("component", "journal")),
	}
}

// Run flushes on the configured interval until the context is cancelled.
// A final flush is attempted on shutdown so the last partial batch is not
// lost with the process.
func (a *Archiver) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	a.logger.InfoContext(ctx, "journal archiver started",
		slog.Duration("interval", a.cfg.Interval),
		slog.Int("streams", len(a.cfg.Streams)),
	)

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := a.Flush(flushCtx); err != nil {
				a.logger.Warn("final journal flush failed", slog.String("error", err.Error()))
			}
			return ctx.Err()
		case <-ticker.C:
			if err := a.Flush(ctx); err != nil {
				a.logger.WarnContext(ctx, "journal flush failed", slog.String("error", err.Error()))
			}
			if err := a.Prune(ctx); err != nil {
				a.logger.WarnContext(ctx, "journal prune failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Flush drains every configured stream past its cursor and uploads one
// JSONL object per stream that had new entries.
func (a *Archiver) Flush(ctx context.Context) error {
	names := make([]string, 0, len(a.cfg.Streams))
	for name := range a.cfg.Streams {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := a.flushStream(ctx, name, a.cfg.Streams[name]); err != nil {
			return fmt.Errorf("journal: flush %s: %w", name, err)
		}
	}
	return nil
}

func (a *Archiver) flushStream(ctx context.Context, name, stream string) error {
	cursor := a.cursors[stream]
	if cursor == "" {
		cursor = "0-0"
	}

	var (
		buf     bytes.Buffer
		firstID string
		count   int
	)

	for {
		msgs, err := a.bus.StreamRead(ctx, stream, cursor, readBatchSize)
		if err != nil {
			return err
		}
		if len(msgs) == 0 {
			break
		}
		for _, msg := range msgs {
			if firstID == "" {
				firstID = msg.ID
			}
			buf.Write(msg.Payload)
			buf.WriteByte('\n')
			cursor = msg.ID
			count++
		}
		if len(msgs) < readBatchSize {
			break
		}
	}

	if count == 0 {
		return nil
	}

	key := fmt.Sprintf("%s/%s/%s/%s.jsonl",
		a.cfg.Prefix, name, time.Now().UTC().Format("2006-01-02"), firstID)

	if err := a.writer.Put(ctx, key, bytes.NewReader(buf.Bytes()), "application/x-ndjson"); err != nil {
		return err
	}

	a.cursors[stream] = cursor
	a.logger.InfoContext(ctx, "journal batch uploaded",
		slog.String("stream", name),
		slog.String("key", key),
		slog.Int("entries", count),
	)
	return nil
}

// Prune deletes journal objects older than the retention window. No-op
// when retention is disabled or no reader was provided.
func (a *Archiver) Prune(ctx context.Context) error {
	if a.cfg.RetentionDays <= 0 || a.reader == nil {
		return nil
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -a.cfg.RetentionDays)

	infos, err := a.reader.List(ctx, a.cfg.Prefix+"/")
	if err != nil {
		return fmt.Errorf("journal: prune list: %w", err)
	}

	var pruned int
	for _, info := range infos {
		if info.LastModified.IsZero() || !info.LastModified.Before(cutoff) {
			continue
		}
		if err := a.reader.Delete(ctx, info.Path); err != nil {
			return fmt.Errorf("journal: prune delete %s: %w", info.Path, err)
		}
		pruned++
	}

	if pruned > 0 {
		a.logger.InfoContext(ctx, "journal objects pruned",
			slog.Int("count", pruned),
			slog.Time("cutoff", cutoff),
		)
	}
	return nil
}
