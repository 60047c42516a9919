// Command dterm is a financial-data terminal: it loads datasets from market,
// statistics, on-chain, news and local sources, transforms them, and shows
// them as tables or charts.
//
// An unknown command <name> runs the dterm-<name> program found in PATH.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"

	"github.com/etnz/dataterm"
	"github.com/etnz/dataterm/cmd"
	"github.com/google/subcommands"
	"github.com/joho/godotenv"
	"github.com/posener/complete/v2/predict"
)

func main() {
	configFile := flag.String("config", "", "configuration file, dterm.yaml when present")

	completion := cmd.Completion()
	completion.Flags["config"] = predict.Files("*.yaml")
	completion.Complete("dterm")

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "Error: .env:", err)
		os.Exit(int(subcommands.ExitFailure))
	}

	commander := subcommands.NewCommander(flag.CommandLine, "dterm")
	cmd.Register(commander, os.Stdin, os.Stdout, os.Stderr)
	flag.Parse()

	session, err := cmd.NewSession(*configFile, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", cmd.Message(err))
		os.Exit(int(subcommands.ExitUsageError))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	status := execute(ctx, commander, session)
	stop()
	if err := session.Close(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(int(status))
}

// execute runs the command line, or the extension it names.
func execute(ctx context.Context, commander *subcommands.Commander, session *dataterm.Session) subcommands.ExitStatus {
	if name := flag.Arg(0); name != "" && !cmd.IsCommand(name) {
		if found, code := cmd.RunExtension(ctx, session, name, flag.Args()[1:], os.Stdin, os.Stdout, os.Stderr); found {
			return subcommands.ExitStatus(code)
		}
	}
	return commander.Execute(ctx, session)
}
