package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DataVisuals/expectations/internal/form"
)

func TestAskAll_SkipsEmptyAnswers(t *testing.T) {
	descriptors, err := form.Compile([]string{"column", "min_value", "regex"}, []string{"id", "amount"})
	require.NoError(t, err)

	p := &ScriptedPrompter{Answers: map[string]any{
		"column":    "amount",
		"min_value": "10",
		"regex":     nil,
	}}

	answers, err := AskAll(p, descriptors)
	require.NoError(t, err)

	assert.Equal(t, []string{"column", "min_value", "regex"}, p.Asked)
	assert.Equal(t, map[string]any{"column": "amount", "min_value": "10"}, answers)

	params, err := form.Collect(descriptors, answers)
	require.NoError(t, err)
	assert.Equal(t, []string{"column", "min_value"}, params.Names())
}

func TestScriptedPrompter_Select(t *testing.T) {
	p := &ScriptedPrompter{Selections: []string{"b", "z"}}

	got, err := p.Select("pick", []string{"a", "b"}, "")
	require.NoError(t, err)
	assert.Equal(t, "b", got)

	_, err = p.Select("pick", []string{"a", "b"}, "")
	assert.Error(t, err)

	_, err = p.Select("pick", []string{"a"}, "")
	assert.Error(t, err)
}

func TestScriptedPrompter_FallsBackToDefault(t *testing.T) {
	p := &ScriptedPrompter{}
	v, err := p.Ask(form.Modifiers()[1])
	require.NoError(t, err)
	assert.Equal(t, true, v)
}

func TestDescriptorValidator(t *testing.T) {
	descriptors, err := form.Compile([]string{"min_value", "test_start_date"}, nil)
	require.NoError(t, err)

	number := descriptorValidator(descriptors[0])
	assert.NoError(t, number("1.5"))
	assert.NoError(t, number(""))
	assert.Error(t, number("abc"))

	date := descriptorValidator(descriptors[1])
	assert.NoError(t, date("2024-01-31"))
	assert.Error(t, date("31/01/2024"))
}

func TestSurveyPrompter_SelectRequiresOptions(t *testing.T) {
	_, err := NewSurveyPrompter().Select("Choose", nil, "")
	assert.Error(t, err)
}
