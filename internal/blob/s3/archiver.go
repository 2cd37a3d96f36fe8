package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jbetancourt7/surebet/internal/domain"
)

// multipartThreshold is the serialized snapshot size above which the archiver
// switches from a single PutObject to a multipart upload.
const multipartThreshold = 8 * 1024 * 1024

// SnapshotArchiver uploads the raw quote snapshot of each detection cycle to
// object storage as JSONL, one quote per line, keyed by date and cycle ID.
// Snapshots exist for offline analysis and replay; nothing in the engine
// reads them back.
type SnapshotArchiver struct {
	writer domain.BlobWriter
}

// NewSnapshotArchiver creates a SnapshotArchiver on top of the given writer.
func NewSnapshotArchiver(writer domain.BlobWriter) *SnapshotArchiver {
	return &SnapshotArchiver{writer: writer}
}

// ArchiveQuotes serializes quotes to JSONL and uploads the document under
// snapshots/<yyyy-mm-dd>/<cycleID>.jsonl. The timestamp of the cycle start
// determines the date prefix.
func (a *SnapshotArchiver) ArchiveQuotes(ctx context.Context, cycleID string, startedAt time.Time, quotes []domain.Quote) error {
	if len(quotes) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, q := range quotes {
		if err := enc.Encode(q); err != nil {
			return fmt.Errorf("s3blob: encode quote: %w", err)
		}
	}

	key := fmt.Sprintf("snapshots/%s/%s.jsonl", startedAt.UTC().Format("2006-01-02"), cycleID)

	if buf.Len() > multipartThreshold {
		if err := a.writer.PutMultipart(ctx, key, &buf, 0); err != nil {
			return fmt.Errorf("s3blob: archive cycle %s: %w", cycleID, err)
		}
		return nil
	}

	if err := a.writer.Put(ctx, key, &buf, "application/x-ndjson"); err != nil {
		return fmt.Errorf("s3blob: archive cycle %s: %w", cycleID, err)
	}
	return nil
}
