package main

import (
	"context"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/mattn/go-isatty"
	"github.com/rotisserie/eris"

	"github.com/sells-group/acsmap/internal/choropleth"
)

// askFunc matches survey.AskOne so tests can answer prompts.
type askFunc func(p survey.Prompt, response any, opts ...survey.AskOpt) error

// promptChooser asks the user to pick a column on the terminal.
type promptChooser struct {
	ask askFunc
}

func newPromptChooser() *promptChooser {
	return &promptChooser{ask: survey.AskOne}
}

// Choose implements choropleth.Chooser. The prompt runs in its own goroutine
// so a cancelled context returns at once.
func (p *promptChooser) Choose(ctx context.Context, title string, options []string) (int, error) {
	type answer struct {
		idx int
		err error
	}
	done := make(chan answer, 1)

	// survey cannot be interrupted from outside, so on cancellation this
	// goroutine stays blocked on stdin until the process exits.
	go func() {
		var idx int
		prompt := &survey.Select{
			Message:  title,
			Options:  options,
			PageSize: 15,
		}
		err := p.ask(prompt, &idx)
		done <- answer{idx: idx, err: err}
	}()

	select {
	case <-ctx.Done():
		return 0, eris.Wrap(ctx.Err(), "prompt: column choice")
	case a := <-done:
		if a.err != nil {
			return 0, eris.Wrap(a.err, "prompt: column choice")
		}
		return a.idx, nil
	}
}

// chooserFor picks how a multi-column table is resolved: a fixed column, the
// first column, or an interactive prompt when stdin is a terminal. With none
// of those the selection aborts. column -1 means unset; any other negative
// value is rejected.
func chooserFor(column int, first bool) (choropleth.Chooser, error) {
	switch {
	case column < -1:
		return nil, choropleth.NewInvalidArgumentError("render: column",
			eris.Errorf("column %d must be zero or greater", column))
	case column >= 0:
		return choropleth.FixedColumn(column), nil
	case first:
		return choropleth.FirstColumn, nil
	case isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()):
		return newPromptChooser(), nil
	default:
		return nil, nil
	}
}
