package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/etnz/dataterm"
	"github.com/etnz/dataterm/date"
	"github.com/etnz/dataterm/docs"
	"github.com/etnz/dataterm/renderer"
	"google.golang.org/genai"
)

// Model is the Gemini model used by every expert.
const Model = "gemini-2.5-pro"

// creates the facilitator
func newFacilitator(experts ...*Expert) *Expert {
	return &Expert{
		Name:      "Facilitator",
		ModelName: Model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(experts)},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
			As a facilitator you are in charge of the conversation and solving the user's request.

			Learn about the expert's skill that you can get from the Tools to ask them questions.
			They are at your service and 100% dedicated to you, they keep context of your previous questions.

			The user is working in a financial data terminal: the datasets they loaded are tables of
			prices, statistics, on-chain metrics, news or transactions. They expect answers grounded
			in those datasets, ask the Analyst about them first.

			Devise a plan of questions to ask to each experts and come up with the best reponse to the user's request.
			Answer in markdown.
		`}}},
		},
		Library: NewLibrary(experts),
	}
}

// NewTrader returns an expert grounded with Google Search.
func NewTrader() *Expert {
	return &Expert{
		Name: "Trader",
		Description: `This is an expert trader,
		Very well aware of all the financial products and institutions,
		about the latest news about the different funds or companies.
		Ask the Trader whenever you need recent or grounding information.`,
		ModelName: Model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{GoogleSearch: &genai.GoogleSearch{}},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
			You are a expert in Trading, you can search and find about anything related to
			financial institutions, companies, markets, funds etc. You Leverage Google Search to
			ground your assertions in a solid truth.
			You can get the latests news too, and you know how to relate them to the user's request.
				`}}},
		},
	}
}

// NewAnalyst returns an expert reading and loading the session datasets.
func NewAnalyst(session *dataterm.Session) *Expert {
	lib := AnalystFunctions(session)
	return &Expert{
		Name: "Analyst",
		Description: `This is the Analyst. They are in charge of the datasets loaded in the user's terminal.
		They can list, describe and show datasets, and load new ones from the registered sources.`,
		ModelName: Model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(lib)},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
				You are a data analyst working on the datasets of the user's terminal.
				You know how to use the Tools to extract relevant information from the datasets.
				You are part of a team of experts, yours is everything about the datasets. They might ask
				you questions about them, pardon their approximative language and figure out what they meant.

				Use the available tools to
				  - list the loaded datasets
				  - describe their columns
				  - show their rows, sorted
				  - list the sources and load a new dataset when none answers the question
			`}}},
		},
		Library: NewLibrary(lib),
		Log:     session.Log,
	}
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// AnalystFunctions returns the functions of the Analyst over session.
func AnalystFunctions(session *dataterm.Session) []*Func {
	nameParam := &genai.Schema{Type: genai.TypeString, Description: "The name of the dataset."}
	return []*Func{
		{
			Decl: &genai.FunctionDeclaration{
				Name:        "list_datasets",
				Description: "Lists the loaded datasets with their number of rows and columns.",
				Response:    &genai.Schema{Type: genai.TypeString, Description: "A markdown table of datasets."},
			},
			Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
				return success(id, "list_datasets", renderer.Datasets(session.Store))
			},
		},
		{
			Decl: &genai.FunctionDeclaration{
				Name:        "describe_dataset",
				Description: "Describes the columns of a dataset: kind, role, currency, missing values, min and max.",
				Parameters: &genai.Schema{
					Type:       genai.TypeObject,
					Properties: map[string]*genai.Schema{"name": nameParam},
					Required:   []string{"name"},
				},
				Response: &genai.Schema{Type: genai.TypeString, Description: "A markdown description of the dataset."},
			},
			Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
				name, err := stringArg(args, "name", "")
				if err != nil {
					return failure(id, "describe_dataset", err)
				}
				t, err := session.Store.Get(name)
				if err != nil {
					return failure(id, "describe_dataset", err)
				}
				return success(id, "describe_dataset", renderer.Describe(name, t))
			},
		},
		{
			Decl: &genai.FunctionDeclaration{
				Name:        "show_dataset",
				Description: "Shows the first rows of a dataset, optionally sorted.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name":    nameParam,
						"limit":   {Type: genai.TypeInteger, Description: "The number of rows to show, 10 by default."},
						"sort":    {Type: genai.TypeString, Description: "Comma separated columns to sort on, a leading '-' sorts in descending order: 'volume,-date'."},
						"columns": {Type: genai.TypeString, Description: "Comma separated columns to show, all by default."},
					},
					Required: []string{"name"},
				},
				Response: &genai.Schema{Type: genai.TypeString, Description: "A markdown table."},
			},
			Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
				out, err := show(session, args)
				if err != nil {
					return failure(id, "show_dataset", err)
				}
				return success(id, "show_dataset", out)
			},
		},
		{
			Decl: &genai.FunctionDeclaration{
				Name:        "list_sources",
				Description: "Lists the sources datasets can be loaded from.",
				Response:    &genai.Schema{Type: genai.TypeString, Description: "A markdown table of sources."},
			},
			Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
				return success(id, "list_sources", renderer.Sources(session.Loader.Sources()))
			},
		},
		{
			Decl: &genai.FunctionDeclaration{
				Name:        "load_dataset",
				Description: "Loads a dataset from a source into the terminal, replacing any dataset of the same name.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"source": {Type: genai.TypeString, Description: "The source name, see list_sources."},
						"symbol": {Type: genai.TypeString, Description: "What to load: a ticker like AAPL.US, a series id, a file path..."},
						"start":  {Type: genai.TypeString, Description: "The first day to load.\n\n" + must(docs.GetTopic("dates"))},
						"end":    {Type: genai.TypeString, Description: "The last day to load, today by default."},
						"name":   {Type: genai.TypeString, Description: "The dataset name, the upper-cased symbol by default."},
					},
					Required: []string{"source", "symbol"},
				},
				Response: &genai.Schema{Type: genai.TypeString, Description: "A markdown description of the loaded dataset."},
			},
			Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
				out, err := load(ctx, session, args)
				if err != nil {
					return failure(id, "load_dataset", err)
				}
				return success(id, "load_dataset", out)
			},
		},
	}
}

func show(session *dataterm.Session, args map[string]any) (string, error) {
	name, err := stringArg(args, "name", "")
	if err != nil {
		return "", err
	}
	limit, err := intArg(args, "limit", session.Config.Limit)
	if err != nil {
		return "", err
	}
	sort, err := stringArg(args, "sort", "")
	if err != nil {
		return "", err
	}
	columns, err := stringArg(args, "columns", "")
	if err != nil {
		return "", err
	}

	t, err := session.Store.Get(name)
	if err != nil {
		return "", err
	}
	keys, err := dataterm.ParseSortKeys(sort)
	if err != nil {
		return "", err
	}
	if len(keys) > 0 {
		if t, err = dataterm.Sort(t, keys...); err != nil {
			return "", err
		}
	}
	var cols []string
	if columns != "" {
		cols = splitList(columns)
	}
	r, err := renderer.Table(t, renderer.TableOptions{Limit: limit, Columns: cols, Title: name})
	if err != nil {
		return "", err
	}
	return r.Markdown, nil
}

func load(ctx context.Context, session *dataterm.Session, args map[string]any) (string, error) {
	var q dataterm.Query
	var start, end, name string
	var err error
	for arg, v := range map[string]*string{"source": &q.Source, "symbol": &q.Symbol, "start": &start, "end": &end, "name": &name} {
		if *v, err = stringArg(args, arg, ""); err != nil {
			return "", err
		}
	}
	if start != "" {
		if q.Range.From, err = date.Parse(start); err != nil {
			return "", fmt.Errorf("%w: start: %v", dataterm.ErrInvalidParameters, err)
		}
	}
	if end != "" {
		if q.Range.To, err = date.Parse(end); err != nil {
			return "", fmt.Errorf("%w: end: %v", dataterm.ErrInvalidParameters, err)
		}
	}
	if name == "" {
		if name, err = dataterm.DatasetName(q.Symbol); err != nil {
			return "", err
		}
	}
	var t *dataterm.Table
	err = session.Run(ctx, dataterm.StageLoad, name, func(ctx context.Context) error {
		t, err = session.Loader.Load(ctx, session.Store, name, q)
		return err
	})
	if err != nil {
		return "", err
	}
	return renderer.Describe(name, t), nil
}

// splitList splits a comma separated list.
func splitList(s string) []string {
	var list []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			list = append(list, v)
		}
	}
	return list
}
