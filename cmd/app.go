// Package cmd implements the dterm subcommands.
//
// Every command declares its options as a Schema. The schema is turned into
// flags, validated before the command runs, and reused for shell completion.
// Commands run against the *dataterm.Session passed to Execute.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/etnz/dataterm"
	"github.com/etnz/dataterm/eodhd"
	"github.com/etnz/dataterm/insee"
	"github.com/etnz/dataterm/ledger"
	"github.com/etnz/dataterm/localfile"
	"github.com/etnz/dataterm/news"
	"github.com/etnz/dataterm/onchain"
	"github.com/etnz/dataterm/renderer"
	"github.com/etnz/dataterm/sqlite"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
)

// Command is a dterm command.
type Command interface {
	Name() string
	Synopsis() string
	Usage() string
	Schema() Schema
	Run(ctx context.Context, e *Env, args []string) error
}

// argPredictor is implemented by commands completing their arguments.
type argPredictor interface {
	Args() complete.Predictor
}

// Env is what a command runs with.
type Env struct {
	*dataterm.Session
	*Values
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Commands returns every dterm command.
func Commands() []Command {
	return []Command{
		&loadCmd{}, &showCmd{}, &listCmd{}, &describeCmd{}, &unloadCmd{},
		&sortCmd{}, &filterCmd{}, &deriveCmd{}, &chartCmd{}, &exportCmd{},
		&sourcesCmd{}, &indicatorsCmd{}, &topicCmd{}, &shellCmd{}, &assistCmd{},
	}
}

// Register registers the dterm commands on c, reading from in and writing
// to out and errOut.
func Register(c *subcommands.Commander, in io.Reader, out, errOut io.Writer) {
	c.Register(c.HelpCommand(), "help")
	c.Register(c.FlagsCommand(), "help")
	c.Register(c.CommandsCommand(), "help")
	for _, cmd := range Commands() {
		c.Register(&runner{Command: cmd, in: in, out: out, err: errOut}, group(cmd.Name()))
	}
}

func group(name string) string {
	switch name {
	case "load", "show", "list", "describe", "unload":
		return "datasets"
	case "sort", "filter", "derive":
		return "transforms"
	case "chart", "export":
		return "output"
	}
	return "terminal"
}

// Completion returns the completion tree of the dterm commands, global
// flags are added by the caller.
func Completion() *complete.Command {
	root := &complete.Command{Sub: map[string]*complete.Command{}, Flags: map[string]complete.Predictor{}}
	for _, cmd := range Commands() {
		sub := &complete.Command{Flags: cmd.Schema().Predictors()}
		if p, ok := cmd.(argPredictor); ok {
			sub.Args = p.Args()
		}
		root.Sub[cmd.Name()] = sub
	}
	return root
}

// runner adapts a Command to subcommands.
type runner struct {
	Command
	in     io.Reader
	out    io.Writer
	err    io.Writer
	values *Values
}

func (r *runner) SetFlags(f *flag.FlagSet) { r.values = r.Schema().Bind(f) }

func (r *runner) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if len(args) == 0 {
		fmt.Fprintln(r.err, "Error: no session")
		return subcommands.ExitFailure
	}
	session, ok := args[0].(*dataterm.Session)
	if !ok {
		fmt.Fprintln(r.err, "Error: no session")
		return subcommands.ExitFailure
	}
	e := &Env{Session: session, Values: r.values, In: r.in, Out: r.out, Err: r.err}
	err := session.Run(ctx, dataterm.StageValidate, "", func(context.Context) error { return r.values.Validate() })
	if err == nil {
		err = r.Run(ctx, e, f.Args())
	}
	return exit(r.err, err)
}

// exit reports err on w and returns the matching exit status.
func exit(w io.Writer, err error) subcommands.ExitStatus {
	if err == nil {
		return subcommands.ExitSuccess
	}
	fmt.Fprintln(w, "Error:", Message(err))
	if errors.Is(err, dataterm.ErrInvalidParameters) {
		return subcommands.ExitUsageError
	}
	return subcommands.ExitFailure
}

var kinds = []error{
	dataterm.ErrInvalidParameters,
	dataterm.ErrSourceUnavailable,
	dataterm.ErrEmptyResult,
	dataterm.ErrNotFound,
	dataterm.ErrUnknownColumn,
	dataterm.ErrInsufficientRows,
}

// Message formats err as "stage: kind: detail".
func Message(err error) string {
	stage := ""
	detail := err.Error()
	var se *dataterm.StageError
	if errors.As(err, &se) {
		stage = string(se.Stage)
		detail = se.Err.Error()
	}
	kind := ""
	for _, k := range kinds {
		if errors.Is(err, k) {
			kind = k.Error()
			detail = strings.Replace(detail, kind+": ", "", 1)
			detail = strings.Replace(detail, ": "+kind, "", 1)
			break
		}
	}
	parts := make([]string, 0, 3)
	for _, p := range []string{stage, kind, detail} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ": ")
}

// NewSession returns a session configured from file with every source registered.
func NewSession(file string, stderr io.Writer) (*dataterm.Session, error) {
	cfg, err := dataterm.LoadConfig(file)
	if err != nil {
		return nil, err
	}
	s, err := dataterm.NewSession(cfg, stderr)
	if err != nil {
		return nil, err
	}
	if err := RegisterSources(s); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// RegisterSources registers the sources available to s.
func RegisterSources(s *dataterm.Session) error {
	cfg := s.Config
	return s.Loader.Register(
		eodhd.New(s.HTTPClient(eodhd.Name, cfg.EODHD.RPS), cfg.EODHD.APIKey),
		insee.New(s.HTTPClient(insee.Name, 0)),
		onchain.New(s.HTTPClient(onchain.Name, 0), cfg.Onchain.Endpoints),
		news.New(s.HTTPClient(news.Name, 0), cfg.News.Sites),
		ledger.New(),
		sqlite.New(),
		localfile.New(),
	)
}

// print writes markdown to the command output.
func (e *Env) print(markdown string) error {
	return dataterm.AtStage(dataterm.StageRender, renderer.Print(e.Out, markdown))
}

// dataset returns the dataset named by the single argument.
func (e *Env) dataset(args []string) (string, *dataterm.Table, error) {
	if len(args) != 1 {
		return "", nil, dataterm.AtStage(dataterm.StageValidate, fmt.Errorf("%w: want one dataset name, got %d arguments", dataterm.ErrInvalidParameters, len(args)))
	}
	name := args[0]
	t, err := e.Store.Get(name)
	if err != nil {
		return "", nil, dataterm.AtStage(dataterm.StageValidate, err)
	}
	return name, t, nil
}

// store saves t under name.
func (e *Env) store(ctx context.Context, name string, t *dataterm.Table) error {
	return e.Session.Run(ctx, dataterm.StageStore, name, func(context.Context) error {
		return e.Store.Put(name, t)
	})
}
