package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/acsmap/internal/choropleth"
)

func TestPromptChooser_Answer(t *testing.T) {
	var asked *survey.Select
	c := &promptChooser{ask: func(p survey.Prompt, response any, _ ...survey.AskOpt) error {
		asked = p.(*survey.Select)
		*(response.(*int)) = 1
		return nil
	}}

	idx, err := c.Choose(context.Background(), "Pick one", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	require.NotNil(t, asked)
	assert.Equal(t, "Pick one", asked.Message)
	assert.Equal(t, []string{"a", "b"}, asked.Options)
}

func TestPromptChooser_Interrupt(t *testing.T) {
	c := &promptChooser{ask: func(survey.Prompt, any, ...survey.AskOpt) error {
		return terminal.InterruptErr
	}}

	_, err := c.Choose(context.Background(), "Pick one", []string{"a", "b"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, terminal.InterruptErr))
}

func TestPromptChooser_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	c := &promptChooser{ask: func(survey.Prompt, any, ...survey.AskOpt) error {
		<-release
		return nil
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Choose(ctx, "Pick one", []string{"a", "b"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPromptChooser_AbortsSelection(t *testing.T) {
	c := &promptChooser{ask: func(survey.Prompt, any, ...survey.AskOpt) error {
		return terminal.InterruptErr
	}}

	_, err := choropleth.SelectColumn(context.Background(), sexByAgeTable(), "B01001", c)
	assert.ErrorIs(t, err, choropleth.ErrSelectionAborted)
}

func TestChooserFor(t *testing.T) {
	table := sexByAgeTable()

	c, err := chooserFor(1, false)
	require.NoError(t, err)
	idx, err := choropleth.SelectColumn(context.Background(), table, "B01001", c)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	c, err = chooserFor(-1, true)
	require.NoError(t, err)
	idx, err = choropleth.SelectColumn(context.Background(), table, "B01001", c)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
}

func TestChooserFor_NegativeColumn(t *testing.T) {
	for _, column := range []int{-2, -5} {
		_, err := chooserFor(column, false)
		assert.ErrorIs(t, err, choropleth.ErrInvalidArgument)

		_, err = chooserFor(column, true)
		assert.ErrorIs(t, err, choropleth.ErrInvalidArgument)
	}
}
