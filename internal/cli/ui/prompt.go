package ui

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"

	"github.com/DataVisuals/expectations/internal/form"
)

// Prompter asks the user for input. Commands depend on this interface so
// they can be driven by scripted answers in tests.
type Prompter interface {
	// Select picks one of options and returns it
	Select(message string, options []string, help string) (string, error)
	// Ask renders one parameter prompt and returns the raw answer, or nil
	// when the user left an optional value empty
	Ask(d form.PromptDescriptor) (any, error)
}

// SurveyPrompter renders prompts on the terminal with survey
type SurveyPrompter struct {
	Options []survey.AskOpt
}

// NewSurveyPrompter creates a terminal prompter
func NewSurveyPrompter(opts ...survey.AskOpt) *SurveyPrompter {
	return &SurveyPrompter{Options: opts}
}

// Select implements Prompter
func (p *SurveyPrompter) Select(message string, options []string, help string) (string, error) {
	if len(options) == 0 {
		return "", fmt.Errorf("nothing to select for %q", message)
	}

	var selected string
	prompt := &survey.Select{
		Message:  message,
		Options:  options,
		Help:     help,
		PageSize: 15,
	}
	if err := survey.AskOne(prompt, &selected, p.Options...); err != nil {
		return "", err
	}
	return selected, nil
}

// Ask implements Prompter
func (p *SurveyPrompter) Ask(d form.PromptDescriptor) (any, error) {
	switch d.Type {
	case form.ColumnChoice, form.FixedEnum:
		if len(d.Choices) == 0 {
			return p.input(d)
		}
		var selected string
		prompt := &survey.Select{
			Message: d.Label,
			Options: d.Choices,
			Help:    d.Help,
		}
		if err := survey.AskOne(prompt, &selected, p.Options...); err != nil {
			return nil, err
		}
		return selected, nil

	case form.MultiColumnChoice:
		if len(d.Choices) == 0 {
			return p.input(d)
		}
		var selected []string
		prompt := &survey.MultiSelect{
			Message: d.Label,
			Options: d.Choices,
			Help:    d.Help,
		}
		if err := survey.AskOne(prompt, &selected, p.Options...); err != nil {
			return nil, err
		}
		if len(selected) == 0 {
			return nil, nil
		}
		return selected, nil

	case form.Boolean:
		def, _ := d.Default.(bool)
		var answer bool
		prompt := &survey.Confirm{
			Message: d.Label,
			Default: def,
			Help:    d.Help,
		}
		if err := survey.AskOne(prompt, &answer, p.Options...); err != nil {
			return nil, err
		}
		return answer, nil

	default:
		return p.input(d)
	}
}

func (p *SurveyPrompter) input(d form.PromptDescriptor) (any, error) {
	var answer string
	prompt := &survey.Input{
		Message: d.Label,
		Help:    d.Help,
	}
	if d.Default != nil {
		prompt.Default = fmt.Sprintf("%v", d.Default)
	}

	validators := []survey.Validator{descriptorValidator(d)}
	if d.Required {
		validators = append([]survey.Validator{survey.Required}, validators...)
	}
	if err := survey.AskOne(prompt, &answer, append(p.Options, survey.WithValidator(survey.ComposeValidators(validators...)))...); err != nil {
		return nil, err
	}
	if answer == "" {
		return nil, nil
	}
	return answer, nil
}

// descriptorValidator rejects answers the descriptor would not normalise,
// so the user is asked again instead of failing at collection
func descriptorValidator(d form.PromptDescriptor) survey.Validator {
	return func(ans interface{}) error {
		s, ok := ans.(string)
		if !ok || s == "" {
			return nil
		}
		_, _, err := d.Normalize(s)
		return err
	}
}

// AskAll asks every descriptor in order and returns the raw answers keyed by
// parameter name, ready for form.Collect
func AskAll(p Prompter, descriptors []form.PromptDescriptor) (map[string]any, error) {
	answers := make(map[string]any, len(descriptors))
	for _, d := range descriptors {
		v, err := p.Ask(d)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.Name, err)
		}
		if v != nil {
			answers[d.Name] = v
		}
	}
	return answers, nil
}

// ScriptedPrompter answers from fixed values. Select picks Selections in
// order; Ask looks answers up by parameter name.
type ScriptedPrompter struct {
	Selections []string
	Answers    map[string]any
	Asked      []string
}

// Select implements Prompter
func (p *ScriptedPrompter) Select(message string, options []string, _ string) (string, error) {
	if len(p.Selections) == 0 {
		return "", fmt.Errorf("no scripted selection for %q", message)
	}
	choice := p.Selections[0]
	p.Selections = p.Selections[1:]
	for _, o := range options {
		if o == choice {
			return choice, nil
		}
	}
	return "", fmt.Errorf("%q is not an option for %q", choice, message)
}

// Ask implements Prompter
func (p *ScriptedPrompter) Ask(d form.PromptDescriptor) (any, error) {
	p.Asked = append(p.Asked, d.Name)
	if v, ok := p.Answers[d.Name]; ok {
		return v, nil
	}
	return d.Default, nil
}
