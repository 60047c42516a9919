package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/dataterm"
	"github.com/etnz/dataterm/agent"
	"github.com/etnz/dataterm/docs"
	"github.com/etnz/dataterm/renderer"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
	"google.golang.org/genai"
)

type sourcesCmd struct{}

func (*sourcesCmd) Name() string     { return "sources" }
func (*sourcesCmd) Synopsis() string { return "list the sources datasets can be loaded from" }
func (*sourcesCmd) Usage() string {
	return `dterm sources
`
}
func (*sourcesCmd) Schema() Schema { return nil }

func (*sourcesCmd) Run(_ context.Context, e *Env, _ []string) error {
	return e.print(renderer.Sources(e.Loader.Sources()))
}

type indicatorsCmd struct{}

func (*indicatorsCmd) Name() string     { return "indicators" }
func (*indicatorsCmd) Synopsis() string { return "list the indicators of derive" }
func (*indicatorsCmd) Usage() string {
	return `dterm indicators
`
}
func (*indicatorsCmd) Schema() Schema { return nil }

func (*indicatorsCmd) Run(_ context.Context, e *Env, _ []string) error {
	return e.print(renderer.Indicators())
}

type topicCmd struct{}

func (*topicCmd) Name() string     { return "topic" }
func (*topicCmd) Synopsis() string { return "show documentation" }
func (*topicCmd) Usage() string {
	return `dterm topic [<topic>...]

  Shows documentation topics, the list of topics by default. '*' shows
  every topic.
`
}
func (*topicCmd) Schema() Schema { return nil }

func (*topicCmd) Args() complete.Predictor {
	topics, _ := docs.GetAllTopics()
	return predict.Set(topics)
}

func (*topicCmd) Run(_ context.Context, e *Env, args []string) error {
	if len(args) == 0 {
		args = []string{docs.Index}
	}
	doc, err := docs.GetTopics(args...)
	if err != nil {
		return dataterm.AtStage(dataterm.StageValidate, err)
	}
	return e.print(doc)
}

type assistCmd struct{}

func (*assistCmd) Name() string     { return "assist" }
func (*assistCmd) Synopsis() string { return "chat with the AI assistant about the datasets" }
func (*assistCmd) Usage() string {
	return `dterm assist [<prompt>]

  Starts an interactive session with the AI assistant. The assistant can
  list, read and load the session datasets. It needs GEMINI_API_KEY.
  Type 'bye' to leave.
`
}
func (*assistCmd) Schema() Schema { return nil }

func (*assistCmd) Run(ctx context.Context, e *Env, args []string) error {
	if os.Getenv("GEMINI_API_KEY") == "" && os.Getenv("GOOGLE_API_KEY") == "" {
		return fmt.Errorf("%w: assist needs GEMINI_API_KEY", dataterm.ErrSourceUnavailable)
	}
	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: gemini client: %v", dataterm.ErrSourceUnavailable, err)
	}
	a := agent.New(e.Out, e.In, agent.NewAnalyst(e.Session), agent.NewTrader())
	a.Print = renderer.Print
	if err := a.Run(ctx, client, strings.Join(args, " ")); err != nil {
		return fmt.Errorf("%w: assistant: %v", dataterm.ErrSourceUnavailable, err)
	}
	return nil
}
