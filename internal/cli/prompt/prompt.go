// Package prompt provides the interactive terminal prompts used by
// "mediaview init --interactive".
package prompt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// ErrAborted is returned when the user aborts a prompt (Ctrl+C).
var ErrAborted = errors.New("aborted")

// IsAborted reports whether err means the user aborted.
func IsAborted(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort) || errors.Is(err, ErrAborted)
}

func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if IsAborted(err) {
		return ErrAborted
	}
	return err
}

// Confirm asks a yes/no question. Empty input selects defaultYes.
func Confirm(label string, defaultYes bool) (bool, error) {
	def := "y/N"
	if defaultYes {
		def = "Y/n"
	}

	p := promptui.Prompt{Label: fmt.Sprintf("%s [%s]", label, def)}
	result, err := p.Run()
	if err != nil {
		return false, wrapError(err)
	}
	return parseYesNo(result, defaultYes), nil
}

func parseYesNo(s string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return def
	case "y", "yes":
		return true
	default:
		return false
	}
}

// Input prompts for free text.
func Input(label, defaultValue string) (string, error) {
	p := promptui.Prompt{Label: label, Default: defaultValue}
	result, err := p.Run()
	return strings.TrimSpace(result), wrapError(err)
}

// InputInt prompts for an integer no smaller than minValue.
func InputInt(label string, defaultValue, minValue int) (int, error) {
	p := promptui.Prompt{
		Label:    label,
		Default:  strconv.Itoa(defaultValue),
		Validate: intAtLeast(minValue),
	}
	result, err := p.Run()
	if err != nil {
		return 0, wrapError(err)
	}
	v, _ := strconv.Atoi(strings.TrimSpace(result))
	return v, nil
}

// InputPort prompts for a TCP port (1-65535).
func InputPort(label string, defaultValue int) (int, error) {
	p := promptui.Prompt{
		Label:    label,
		Default:  strconv.Itoa(defaultValue),
		Validate: validatePort,
	}
	result, err := p.Run()
	if err != nil {
		return 0, wrapError(err)
	}
	v, _ := strconv.Atoi(strings.TrimSpace(result))
	return v, nil
}

// InputFraction prompts for a number in (0, 1], such as a heap usage ratio.
func InputFraction(label string, defaultValue float64) (float64, error) {
	p := promptui.Prompt{
		Label:    label,
		Default:  strconv.FormatFloat(defaultValue, 'f', -1, 64),
		Validate: validateFraction,
	}
	result, err := p.Run()
	if err != nil {
		return 0, wrapError(err)
	}
	v, _ := strconv.ParseFloat(strings.TrimSpace(result), 64)
	return v, nil
}

// Option is an entry in a Select list.
type Option struct {
	Label       string
	Value       string
	Description string
}

// Select prompts the user to pick one option and returns its Value.
func Select(label string, options []Option) (string, error) {
	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ .Label | cyan }}",
		Inactive: "  {{ .Label | white }}",
		Selected: "* {{ .Label | green }}",
		Details:  `{{ if .Description }}{{ "Description:" | faint }}	{{ .Description }}{{ end }}`,
	}

	p := promptui.Select{
		Label:     label,
		Items:     options,
		Templates: templates,
		Size:      10,
	}
	i, _, err := p.Run()
	if err != nil {
		return "", wrapError(err)
	}
	return options[i].Value, nil
}

func intAtLeast(minValue int) func(string) error {
	return func(s string) error {
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return errors.New("must be a valid integer")
		}
		if v < minValue {
			return fmt.Errorf("must be at least %d", minValue)
		}
		return nil
	}
}

func validatePort(s string) error {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return errors.New("must be a valid integer")
	}
	if port < 1 || port > 65535 {
		return errors.New("must be a valid port (1-65535)")
	}
	return nil
}

func validateFraction(s string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return errors.New("must be a number")
	}
	if v <= 0 || v > 1 {
		return errors.New("must be greater than 0 and at most 1")
	}
	return nil
}
