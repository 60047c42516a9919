package dataterm

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/etnz/dataterm/date"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Session is the context object shared by the commands of a terminal session.
//
// It is created when the terminal starts, passed to every command, and
// closed when the terminal exits. The datasets it holds die with it.
type Session struct {
	ID     uuid.UUID
	Config Config
	Store  *Store
	Loader *Loader
	Log    *logrus.Entry

	tracer   trace.Tracer
	shutdown func(context.Context) error
}

// NewSession returns a session with an empty store and a loader without
// sources. Logs and traces go to stderr.
func NewSession(cfg Config, stderr io.Writer) (*Session, error) {
	if stderr == nil {
		stderr = os.Stderr
	}
	logger, err := NewLogger(cfg.LogLevel, stderr)
	if err != nil {
		return nil, err
	}
	tracer, shutdown, err := newTracer(cfg.Trace, stderr)
	if err != nil {
		return nil, err
	}
	id := uuid.New()
	log := logger.WithField("session", id.String())
	s := &Session{
		ID:       id,
		Config:   cfg,
		Store:    NewStore(),
		Loader:   NewLoader(cfg.Timeout, log),
		Log:      log,
		tracer:   tracer,
		shutdown: shutdown,
	}
	log.Debug("session started")
	return s, nil
}

// Close releases the session resources and drops its datasets.
func (s *Session) Close() error {
	s.Log.WithField("datasets", s.Store.Len()).Debug("session closed")
	s.Store = NewStore()
	return s.shutdown(context.Background())
}

// Run executes f as a pipeline stage: it is traced, logged, and its error is
// reported as a StageError of that stage.
func (s *Session) Run(ctx context.Context, stage Stage, dataset string, f func(ctx context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, string(stage), trace.WithAttributes(
		attribute.String("session", s.ID.String()),
		attribute.String("dataset", dataset),
	))
	defer span.End()

	start := time.Now()
	err := AtStage(stage, f(ctx))
	log := s.Log.WithFields(logrus.Fields{"stage": stage, "dataset": dataset, "elapsed": time.Since(start)})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.WithError(err).Debug("stage failed")
		return err
	}
	log.Debug("stage done")
	return nil
}

// HTTPClient returns a client for a remote source, caching answers for a day
// under the configured cache directory. rps limits the request rate, 0 is unlimited.
func (s *Session) HTTPClient(source string, rps float64) *http.Client {
	dir := s.Config.CacheDir
	if dir != "" {
		dir = filepath.Join(dir, source)
	}
	return NewHTTPClient(HTTPOptions{
		CacheDir: dir,
		Period:   date.Daily,
		RPS:      rps,
		Log:      s.Log.WithField("source", source),
	})
}

// ExportPath returns where an export of dataset in format ext is written when
// no path is given. The file is always directly in the export directory: path
// separators in the dataset name are replaced by '_'.
func (s *Session) ExportPath(dataset, ext string) string {
	base := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == filepath.Separator {
			return '_'
		}
		return r
	}, dataset)
	name := base + "_" + time.Now().Format("20060102_150405") + "." + ext
	return filepath.Join(s.Config.ExportDir, name)
}
