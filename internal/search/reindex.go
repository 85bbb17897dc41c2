package search

import (
	"context"
	"log/slog"
	"time"

	"github.com/starford/vaultgraph/internal/checksum"
	"github.com/starford/vaultgraph/internal/parser"
	"github.com/starford/vaultgraph/internal/snapshot"
)

// DefaultLimit caps the number of results when the caller gives none.
const DefaultLimit = 20

// Source reads note files by relative path.
type Source interface {
	Read(path string) ([]byte, error)
	ModTime(path string) (time.Time, error)
}

// Stats summarises one Reindex pass.
type Stats struct {
	Indexed   int
	Unchanged int
	Removed   int
	Failed    int
	// Skipped is set when the snapshot was older than one already indexed.
	Skipped bool
}

// Reindex brings the database in line with snap: notes whose content checksum
// changed are parsed and upserted, and slugs no longer in the snapshot are
// removed. Unreadable files are logged and left as they were.
//
// Passes may arrive out of order. A snapshot built before the last one indexed
// is skipped, so it cannot remove notes a newer snapshot added.
func (db *DB) Reindex(ctx context.Context, snap *snapshot.Snapshot, src Source, logger *slog.Logger) (Stats, error) {
	db.reindexMu.Lock()
	defer db.reindexMu.Unlock()

	var st Stats
	if snap.BuiltAt.Before(db.indexedAt) {
		st.Skipped = true
		logger.Debug("search: skipped stale snapshot", slog.String("snapshot", snap.ID.String()))
		return st, nil
	}
	stored, err := db.AllChecksums()
	if err != nil {
		return st, err
	}

	live := make(map[string]struct{}, snap.Index.Len())
	for _, rec := range snap.Index.Notes() {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		live[rec.FullPathSlug] = struct{}{}

		data, err := src.Read(rec.RelativeFilePath)
		if err != nil {
			st.Failed++
			logger.Warn("search: read failed", slog.String("path", rec.RelativeFilePath), slog.String("error", err.Error()))
			continue
		}
		// Path is part of the key so a rename with identical content is picked up.
		cs := checksum.Sum(append([]byte(rec.RelativeFilePath+"\x00"), data...))
		if stored[rec.FullPathSlug] == cs {
			st.Unchanged++
			continue
		}

		res, err := parser.Parse(data)
		if err != nil {
			st.Failed++
			logger.Warn("search: parse failed", slog.String("path", rec.RelativeFilePath), slog.String("error", err.Error()))
			continue
		}
		mod, _ := src.ModTime(rec.RelativeFilePath)
		row := Row{
			Slug:      rec.FullPathSlug,
			Title:     rec.Title,
			Path:      rec.RelativeFilePath,
			Heading:   res.Heading,
			Checksum:  cs,
			Tags:      res.Tags,
			UpdatedAt: mod,
		}
		if err := db.Upsert(row, res.Body); err != nil {
			st.Failed++
			logger.Warn("search: index failed", slog.String("path", rec.RelativeFilePath), slog.String("error", err.Error()))
			continue
		}
		st.Indexed++
	}

	for s := range stored {
		if _, ok := live[s]; ok {
			continue
		}
		if err := db.Delete(s); err != nil {
			logger.Warn("search: delete failed", slog.String("slug", s), slog.String("error", err.Error()))
			continue
		}
		st.Removed++
	}
	db.indexedAt = snap.BuiltAt

	logger.Debug("search: reindexed",
		slog.String("snapshot", snap.ID.String()),
		slog.Int("indexed", st.Indexed),
		slog.Int("unchanged", st.Unchanged),
		slog.Int("removed", st.Removed),
		slog.Int("failed", st.Failed))
	return st, nil
}
