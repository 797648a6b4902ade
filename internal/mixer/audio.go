package mixer

import (
	"context"
	"fmt"
	"path/filepath"

	"mixer/internal/workdir"
)

// track is one fetched audio file.
type track struct {
	source string
	path   string
}

// fetchPool downloads every source in order. Sources that fail are reported
// and left out of the pool.
func (m *Mixer) fetchPool(ctx context.Context, dir *workdir.Dir, sources []string) ([]track, []FetchFailure, error) {
	audioDir, err := dir.Mkdir("audio")
	if err != nil {
		return nil, nil, err
	}

	log := m.log.FromContext(ctx)
	var (
		pool     []track
		failures []FetchFailure
	)
	for i, source := range sources {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		prefix := filepath.Join(audioDir, fmt.Sprintf("audio_%d", i))
		path, err := m.fetcher.Fetch(ctx, source, prefix)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			f := FetchFailure{Source: source, Error: err.Error()}
			failures = append(failures, f)
			log.Warn("source dropped", "source", source, "error", err.Error())
			m.hooks.fetchFailed(f)
			continue
		}
		pool = append(pool, track{source: source, path: path})
	}

	log.Debug("audio pool ready", "tracks", len(pool), "failed", len(failures))
	return pool, failures, nil
}
