// Package dialog asks structured questions: a set of required fields, a
// set of optional fields the user may visit, and a final action.
package dialog

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dshills/ropestorm/internal/host"
)

// ErrRequired is returned when a required field is left empty.
var ErrRequired = errors.New("dialog: required value missing")

// Kind selects how a value is read.
type Kind int

const (
	KindText Kind = iota
	KindDirectory
)

// Data describes one question.
type Data struct {
	Prompt  string
	Default string
	// Values offers completion candidates; the answer must be one of them
	// when set.
	Values []string
	Kind   Kind
}

// Field is a named question.
type Field struct {
	Name string
	Data Data
}

// Ask asks a single question. An empty answer takes the default.
func Ask(ui host.Prompter, d Data) (string, error) {
	prompt := d.Prompt
	if d.Default != "" {
		prompt += fmt.Sprintf("[%s] ", d.Default)
	}
	var (
		answer string
		err    error
	)
	switch {
	case len(d.Values) > 0:
		answer, err = ui.AskChoice(prompt, d.Values, "")
	case d.Kind == KindDirectory:
		answer, err = ui.AskDirectory(prompt, "")
	default:
		answer, err = ui.Ask(prompt, "")
	}
	if err != nil {
		return "", err
	}
	if answer == "" {
		return d.Default, nil
	}
	return answer, nil
}

// Dialog is a set of questions ending in an action.
type Dialog struct {
	Actions  []string
	Required []Field
	Optional []Field
	// Deferred skips asking the required fields up front; they become
	// choices like the optional ones and must be set before an action
	// other than the last is accepted.
	Deferred bool
}

// Show asks every required field, then asks what to do next. Choosing a
// field's name asks that field and returns to the choice; choosing an
// action ends the dialog. Optional fields never asked get their defaults
// in the returned values.
func Show(ui host.Prompter, d Dialog) (string, map[string]string, error) {
	if len(d.Actions) == 0 {
		return "", nil, errors.New("dialog: no actions")
	}
	values := make(map[string]string, len(d.Required)+len(d.Optional))
	if !d.Deferred {
		for _, f := range d.Required {
			v, err := Ask(ui, f.Data)
			if err != nil {
				return "", nil, err
			}
			if strings.TrimSpace(v) == "" {
				ui.Message(f.Name + " is required")
				return "", nil, fmt.Errorf("%w: %s", ErrRequired, f.Name)
			}
			values[f.Name] = v
		}
	}

	fields := slices.Concat(d.Required, d.Optional)
	choices := slices.Clone(d.Actions)
	for _, f := range fields {
		choices = append(choices, f.Name)
	}
	choose := Data{Prompt: "Choose what to do: ", Default: d.Actions[0], Values: choices}
	last := d.Actions[len(d.Actions)-1]
	for {
		action, err := Ask(ui, choose)
		if err != nil {
			return "", nil, err
		}
		if slices.Contains(d.Actions, action) {
			if missing := d.missing(values); missing != "" && action != last {
				ui.Message(missing + " is required")
				continue
			}
			for _, f := range d.Optional {
				if _, ok := values[f.Name]; !ok {
					values[f.Name] = f.Data.Default
				}
			}
			return action, values, nil
		}
		i := slices.IndexFunc(fields, func(f Field) bool { return f.Name == action })
		if i < 0 {
			ui.Message("Unknown action: " + action)
			continue
		}
		v, err := Ask(ui, fields[i].Data)
		if err != nil {
			return "", nil, err
		}
		values[action] = v
	}
}

func (d Dialog) missing(values map[string]string) string {
	for _, f := range d.Required {
		if strings.TrimSpace(values[f.Name]) == "" {
			return f.Name
		}
	}
	return ""
}
