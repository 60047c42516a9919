package cmd

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/etnz/dataterm"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// Type is the type of an option value.
type Type int

const (
	String Type = iota
	Int
	Float
	Bool
	List // repeatable string flag
)

// Option declares a command flag.
type Option struct {
	Flag    string
	Type    Type
	Default string
	// Constraint is a validator tag checked before the command runs, for
	// lists it applies to every value.
	Constraint string
	Usage      string
	// Predict completes the flag value, derived from Type and Constraint when nil.
	Predict complete.Predictor
}

// Schema is the list of options of a command.
type Schema []Option

// Values holds the parsed options of a command.
type Values struct {
	schema Schema
	fs     *flag.FlagSet
	values map[string]any
}

// Bind declares the schema options on fs. Defaults that do not parse panic,
// they are programming errors.
func (s Schema) Bind(fs *flag.FlagSet) *Values {
	v := &Values{schema: s, fs: fs, values: make(map[string]any, len(s))}
	for _, o := range s {
		switch o.Type {
		case String:
			v.values[o.Flag] = fs.String(o.Flag, o.Default, o.Usage)
		case Int:
			def := 0
			if o.Default != "" {
				def = must(strconv.Atoi(o.Default))
			}
			v.values[o.Flag] = fs.Int(o.Flag, def, o.Usage)
		case Float:
			def := 0.0
			if o.Default != "" {
				def = must(strconv.ParseFloat(o.Default, 64))
			}
			v.values[o.Flag] = fs.Float64(o.Flag, def, o.Usage)
		case Bool:
			def := false
			if o.Default != "" {
				def = must(strconv.ParseBool(o.Default))
			}
			v.values[o.Flag] = fs.Bool(o.Flag, def, o.Usage)
		case List:
			l := new(listValue)
			fs.Var(l, o.Flag, o.Usage)
			v.values[o.Flag] = l
		}
	}
	return v
}

// Predictors returns the completion of every option.
func (s Schema) Predictors() map[string]complete.Predictor {
	flags := make(map[string]complete.Predictor, len(s))
	for _, o := range s {
		flags[o.Flag] = o.predictor()
	}
	return flags
}

func (o Option) predictor() complete.Predictor {
	switch {
	case o.Predict != nil:
		return o.Predict
	case o.Type == Bool:
		return predict.Nothing
	}
	for _, rule := range strings.Split(o.Constraint, ",") {
		if values, ok := strings.CutPrefix(rule, "oneof="); ok {
			return predict.Set(strings.Fields(values))
		}
	}
	return predict.Something
}

// Validate checks every option against its constraint.
func (v *Values) Validate() error {
	for _, o := range v.schema {
		if o.Constraint == "" {
			continue
		}
		if o.Type == List {
			for _, x := range v.List(o.Flag) {
				if err := dataterm.ValidateVar("-"+o.Flag, x, o.Constraint); err != nil {
					return err
				}
			}
			continue
		}
		if err := dataterm.ValidateVar("-"+o.Flag, v.value(o.Flag), o.Constraint); err != nil {
			return err
		}
	}
	return nil
}

func (v *Values) value(name string) any {
	switch x := v.values[name].(type) {
	case *string:
		return *x
	case *int:
		return *x
	case *float64:
		return *x
	case *bool:
		return *x
	case *listValue:
		return []string(*x)
	}
	panic(fmt.Sprintf("undeclared option %q", name))
}

func (v *Values) String(name string) string { return v.value(name).(string) }

func (v *Values) Int(name string) int { return v.value(name).(int) }

func (v *Values) Float(name string) float64 { return v.value(name).(float64) }

func (v *Values) Bool(name string) bool { return v.value(name).(bool) }

func (v *Values) List(name string) []string { return v.value(name).([]string) }

// Has reports whether the option is declared by the command.
func (v *Values) Has(name string) bool {
	_, ok := v.values[name]
	return ok
}

// Columns returns a comma separated list option, split and trimmed.
func (v *Values) Columns(name string) []string { return splitList(v.String(name)) }

// listValue is a repeatable string flag.
type listValue []string

func (l *listValue) String() string { return strings.Join(*l, ",") }

func (l *listValue) Set(s string) error {
	*l = append(*l, s)
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, x := range strings.Split(s, ",") {
		if x = strings.TrimSpace(x); x != "" {
			out = append(out, x)
		}
	}
	return out
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
