package dataterm

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/etnz/dataterm/date"
	"github.com/sirupsen/logrus"
)

// DefaultTimeout bounds a single fetch when none is configured.
const DefaultTimeout = 30 * time.Second

// Loader fetches datasets from registered sources into a Store.
type Loader struct {
	sources map[string]Source
	timeout time.Duration
	log     *logrus.Entry
	today   func() date.Date
}

// NewLoader returns a Loader without sources. A zero timeout means DefaultTimeout.
func NewLoader(timeout time.Duration, log *logrus.Entry) *Loader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Loader{
		sources: make(map[string]Source),
		timeout: timeout,
		log:     log,
		today:   date.Today,
	}
}

// Register adds a source. Source names are unique.
func (l *Loader) Register(sources ...Source) error {
	for _, s := range sources {
		if _, exists := l.sources[s.Name()]; exists {
			return invalidf("source %q registered twice", s.Name())
		}
		l.sources[s.Name()] = s
	}
	return nil
}

// Source returns the source registered under name.
func (l *Loader) Source(name string) (Source, error) {
	s, ok := l.sources[name]
	if !ok {
		names := make([]string, 0, len(l.sources))
		for _, s := range l.Sources() {
			names = append(names, s.Name())
		}
		return nil, invalidf("unknown source %q (have %s)", name, strings.Join(names, ", "))
	}
	return s, nil
}

// Sources returns the registered sources sorted by name.
func (l *Loader) Sources() []Source {
	list := make([]Source, 0, len(l.sources))
	for _, s := range l.sources {
		list = append(list, s)
	}
	slices.SortFunc(list, func(a, b Source) int { return strings.Compare(a.Name(), b.Name()) })
	return list
}

// Load fetches q from its source and stores the result under name. An empty
// name defaults to DatasetName(q.Symbol).
//
// There is a single attempt bounded by the loader timeout. On failure the
// store is left untouched.
func (l *Loader) Load(ctx context.Context, store *Store, name string, q Query) (*Table, error) {
	if name == "" && q.Symbol != "" {
		var err error
		if name, err = DatasetName(q.Symbol); err != nil {
			return nil, AtStage(StageValidate, err)
		}
	}
	table, err := l.Fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	if err := store.Put(name, table); err != nil {
		return nil, AtStage(StageStore, err)
	}
	l.log.WithFields(logrus.Fields{"stage": StageStore, "dataset": name, "rows": table.Len()}).Debug("stored")
	return table, nil
}

// Fetch validates q and fetches it from its source without storing it. An
// empty answer is an error.
func (l *Loader) Fetch(ctx context.Context, q Query) (*Table, error) {
	q = q.WithDefaults(l.today())
	if err := q.Validate(); err != nil {
		return nil, AtStage(StageValidate, err)
	}
	src, err := l.Source(q.Source)
	if err != nil {
		return nil, AtStage(StageValidate, err)
	}

	log := l.log.WithFields(logrus.Fields{"stage": StageLoad, "source": q.Source, "symbol": q.Symbol})
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	table, err := src.Fetch(ctx, q)
	if err != nil {
		err = classify(ctx, err)
		log.WithError(err).Debug("fetch failed")
		return nil, AtStage(StageLoad, fmt.Errorf("%s %s: %w", q.Source, q.Symbol, err))
	}
	if table == nil || table.Len() == 0 {
		return nil, AtStage(StageLoad, fmt.Errorf("%s %s: %w", q.Source, q.Symbol, ErrEmptyResult))
	}
	log.WithFields(logrus.Fields{"rows": table.Len(), "elapsed": time.Since(start)}).Info("fetched")
	return table, nil
}

// classify makes sure a fetch error wraps one of the error kinds.
func classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		if errors.Is(err, ErrSourceUnavailable) {
			return err
		}
		return fmt.Errorf("%w: timeout: %v", ErrSourceUnavailable, err)
	}
	for _, kind := range []error{ErrInvalidParameters, ErrSourceUnavailable, ErrEmptyResult, ErrNotFound, ErrUnknownColumn} {
		if errors.Is(err, kind) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
}
