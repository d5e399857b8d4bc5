// Package assistant ties document extraction, chat orchestration and summary output to
// per-session state.
package assistant

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"paper-reader/internal/apperr"
	"paper-reader/internal/chat"
	"paper-reader/internal/events"
	"paper-reader/internal/ocr"
	"paper-reader/internal/pdfmeta"
	"paper-reader/internal/session"
)

// User-facing status lines.
const (
	BannerUploadedPrefix = "📄 **已上传文件:** "
	BannerParseFailed    = "❌ 文件解析失败："
	BannerOCRConfig      = "⚠️ 请先在 .env 文件中配置 Textin App ID 和 App Secret"
	BannerLLMConfig      = "⚠️ 请先在 .env 文件中配置 DeepSeek API Key 和 Base URL"
)

var ErrNoDocument = errors.New("no document uploaded")

// SummarySaver persists a finished auto-summary and returns where it was written.
type SummarySaver interface {
	SaveFor(ctx context.Context, sessionID uuid.UUID, summaryText, originalFileName string) (string, error)
}

// UploadResult is the outcome of an upload. Banner is set on success and on failure.
type UploadResult struct {
	Document session.Document `json:"document"`
	Banner   string           `json:"banner"`
}

// Service runs the reading workflow for each session.
type Service struct {
	extractor ocr.Extractor
	chat      *chat.Orchestrator
	summaries SummarySaver
	sessions  session.Store
	events    events.Publisher
	log       *slog.Logger
}

// New builds a service. pub and log may be nil.
func New(extractor ocr.Extractor, orchestrator *chat.Orchestrator, summaries SummarySaver, sessions session.Store, pub events.Publisher, log *slog.Logger) *Service {
	if pub == nil {
		pub = events.Noop{}
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		extractor: extractor,
		chat:      orchestrator,
		summaries: summaries,
		sessions:  sessions,
		events:    pub,
		log:       log,
	}
}

// CreateSession starts an empty session.
func (s *Service) CreateSession(ctx context.Context) (session.Session, error) {
	return s.sessions.Create(ctx)
}

// Session returns the current state of a session.
func (s *Service) Session(ctx context.Context, id uuid.UUID) (session.Session, error) {
	return s.sessions.Get(ctx, id)
}

// Upload extracts an uploaded PDF and makes it the session document.
func (s *Service) Upload(ctx context.Context, id uuid.UUID, fileName string, content []byte) (UploadResult, error) {
	if _, err := s.sessions.Get(ctx, id); err != nil {
		return UploadResult{}, err
	}
	fileName = filepath.Base(fileName)
	log := s.log.With("session_id", id, "file_name", fileName)

	pages, err := pdfmeta.PageCount(content)
	if err != nil {
		log.Debug("page count unavailable", "err", err)
	}

	start := time.Now()
	markdown, err := s.extractor.ExtractContent(ctx, content, ocr.DefaultOptions())
	if err != nil {
		return s.uploadFailed(ctx, id, err)
	}
	log.Info("document extracted", "pages", pages, "markdown_len", len(markdown), "took", time.Since(start))
	return s.uploadDone(ctx, id, session.Document{FileName: fileName, Markdown: markdown, Pages: pages})
}

// UploadURL extracts a remote PDF and makes it the session document.
func (s *Service) UploadURL(ctx context.Context, id uuid.UUID, rawURL string) (UploadResult, error) {
	if _, err := s.sessions.Get(ctx, id); err != nil {
		return UploadResult{}, err
	}
	fileName := URLFileName(rawURL)

	start := time.Now()
	markdown, err := s.extractor.Extract(ctx, rawURL, ocr.DefaultOptions(), true)
	if err != nil {
		return s.uploadFailed(ctx, id, err)
	}
	s.log.Info("document extracted", "session_id", id, "url", rawURL, "markdown_len", len(markdown), "took", time.Since(start))
	return s.uploadDone(ctx, id, session.Document{FileName: fileName, Markdown: markdown})
}

// URLFileName names a remote document after the last element of its URL path, with a
// ".pdf" extension added when the path carries none.
func URLFileName(rawURL string) string {
	name := ""
	if u, err := url.Parse(rawURL); err == nil {
		name = path.Base(u.Path)
		if name == "." || name == "/" {
			name = u.Hostname()
		}
	}
	if name == "" {
		name = "document"
	}
	if !strings.EqualFold(path.Ext(name), ".pdf") {
		name += ".pdf"
	}
	return name
}

func (s *Service) uploadDone(ctx context.Context, id uuid.UUID, doc session.Document) (UploadResult, error) {
	if err := s.sessions.SetDocument(ctx, id, doc); err != nil {
		return UploadResult{}, err
	}
	if err := s.events.Publish(ctx, events.Event{
		Type:      events.TypeDocumentExtracted,
		SessionID: id,
		Attributes: map[string]string{
			"file_name":    doc.FileName,
			"pages":        strconv.Itoa(doc.Pages),
			"markdown_len": strconv.Itoa(len(doc.Markdown)),
		},
	}); err != nil {
		s.log.Warn("failed to publish document event", "session_id", id, "err", err)
	}
	return UploadResult{Document: doc, Banner: BannerUploadedPrefix + doc.FileName}, nil
}

func (s *Service) uploadFailed(ctx context.Context, id uuid.UUID, err error) (UploadResult, error) {
	if apperr.Is(err, apperr.KindConfiguration) {
		return UploadResult{Banner: BannerOCRConfig}, &apperr.Error{Kind: apperr.KindConfiguration, Op: "assistant.upload", Msg: BannerOCRConfig, Err: err}
	}
	s.log.Warn("document extraction failed", "session_id", id, "err", err)
	if clearErr := s.sessions.SetDocument(ctx, id, session.Document{}); clearErr != nil {
		s.log.Error("failed to clear session document", "session_id", id, "err", clearErr)
	}
	banner := BannerParseFailed + apperr.UserMessage(err)
	if !apperr.Is(err, apperr.KindExtraction) {
		err = apperr.E(apperr.KindExtraction, "assistant.upload", err)
	}
	return UploadResult{Banner: banner}, &apperr.Error{Kind: apperr.KindOf(err), Op: "assistant.upload", Msg: banner, Err: err}
}

// Ask streams the reply to prompt. The new turn is appended to the stored history once the
// stream completes.
func (s *Service) Ask(ctx context.Context, id uuid.UUID, prompt string, params chat.Params) (<-chan chat.Snapshot, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, sess.ID, chat.Request{
		Display:  prompt,
		Prompt:   prompt,
		History:  sess.History,
		Document: sess.Document.Markdown,
		Params:   params,
	}, nil)
}

// Summarize streams the intensive-reading report of the session document and saves it
// once generation succeeds.
func (s *Service) Summarize(ctx context.Context, id uuid.UUID, params chat.Params) (<-chan chat.Snapshot, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Document.FileName == "" {
		return nil, apperr.E(apperr.KindInvalidInput, "assistant.summarize", ErrNoDocument)
	}
	fileName := sess.Document.FileName
	return s.respond(ctx, sess.ID, chat.Request{
		Display:  chat.UploadMarker + fileName,
		Prompt:   chat.IntensiveReading,
		History:  sess.History,
		Document: sess.Document.Markdown,
		Params:   params,
	}, func(ctx context.Context, reply string) {
		if _, err := s.summaries.SaveFor(ctx, sess.ID, reply, fileName); err != nil {
			s.log.Error("failed to save summary", "session_id", sess.ID, "file_name", fileName, "err", err)
		}
	})
}

// respond forwards snapshots to the caller and appends the new turns to the stored history,
// leaving turns and documents written meanwhile by other requests in place. onSuccess
// runs with the finished reply when generation did not fail.
func (s *Service) respond(ctx context.Context, id uuid.UUID, req chat.Request, onSuccess func(context.Context, string)) (<-chan chat.Snapshot, error) {
	snapshots, err := s.chat.Respond(ctx, req)
	if err != nil {
		if apperr.Is(err, apperr.KindConfiguration) {
			return nil, &apperr.Error{Kind: apperr.KindConfiguration, Op: "assistant.respond", Msg: BannerLLMConfig, Err: err}
		}
		return nil, err
	}

	out := make(chan chat.Snapshot)
	go func() {
		defer close(out)

		var (
			last chat.Snapshot
			seen bool
		)
		for snap := range snapshots {
			last, seen = snap, true
			select {
			case out <- snap:
			case <-ctx.Done():
			}
		}
		if !seen || ctx.Err() != nil {
			s.log.Info("response abandoned", "session_id", id)
			return
		}

		// The caller may go away as soon as the channel closes.
		persistCtx := context.WithoutCancel(ctx)
		added := last.Turns[len(req.History):]
		if err := s.sessions.AppendTurns(persistCtx, id, added...); err != nil {
			s.log.Error("failed to append turns", "session_id", id, "err", err)
		}
		if last.Err == nil && onSuccess != nil {
			onSuccess(persistCtx, last.Reply)
		}
	}()
	return out, nil
}
