package summary

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"paper-reader/internal/events"
	"paper-reader/internal/metrics"
	"paper-reader/internal/render"
	"paper-reader/internal/store"
)

const (
	// DefaultDir is where summaries are written when no directory is configured.
	DefaultDir = "summaries"

	fileSuffix  = "_summary.md"
	titlePrefix = "# 论文总结："
)

// Writer persists finished auto-summaries as markdown files.
type Writer struct {
	dir     string
	archive store.Archive
	events  events.Publisher
	log     *slog.Logger
}

// NewWriter builds a writer rooted at dir. archive and pub may be nil.
func NewWriter(dir string, archive store.Archive, pub events.Publisher, log *slog.Logger) *Writer {
	if dir == "" {
		dir = DefaultDir
	}
	if archive == nil {
		archive = store.NoopArchive{}
	}
	if pub == nil {
		pub = events.Noop{}
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Writer{dir: dir, archive: archive, events: pub, log: log}
}

// FileName derives the output name: the base name without its extension plus "_summary.md".
func FileName(originalFileName string) string {
	base := filepath.Base(originalFileName)
	if stem := strings.TrimSuffix(base, filepath.Ext(base)); stem != "" {
		base = stem
	}
	return base + fileSuffix
}

// Render returns the file content for a summary of originalFileName.
func Render(summaryText, originalFileName string) string {
	return titlePrefix + originalFileName + "\n\n" + summaryText
}

// Save writes summaryText under the output directory and returns the file path.
// An existing file with the same name is replaced.
func (w *Writer) Save(ctx context.Context, summaryText, originalFileName string) (string, error) {
	return w.SaveFor(ctx, uuid.Nil, summaryText, originalFileName)
}

// SaveFor is Save with the originating session recorded in the archive and event.
func (w *Writer) SaveFor(ctx context.Context, sessionID uuid.UUID, summaryText, originalFileName string) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create summary dir: %w", err)
	}
	path := filepath.Join(w.dir, FileName(originalFileName))
	if err := os.WriteFile(path, []byte(Render(summaryText, originalFileName)), 0o644); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}
	metrics.SummariesSaved.Inc()
	log := w.log.With("session_id", sessionID, "file_name", originalFileName)
	log.Info("summary saved", "path", path)

	archived, err := w.archive.SaveSummary(ctx, store.Summary{
		SessionID: sessionID,
		FileName:  originalFileName,
		Path:      path,
		Body:      summaryText,
		Headings:  render.Headings(summaryText),
	})
	if err != nil {
		log.Warn("failed to archive summary", "err", err)
	}

	attrs := map[string]string{"file_name": originalFileName, "path": path}
	if archived.ID != uuid.Nil {
		attrs["summary_id"] = archived.ID.String()
	}
	if err := w.events.Publish(ctx, events.Event{
		Type:       events.TypeSummarySaved,
		SessionID:  sessionID,
		Attributes: attrs,
	}); err != nil {
		log.Warn("failed to publish summary event", "err", err)
	}
	return path, nil
}
