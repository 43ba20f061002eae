package cli

import "github.com/charmbracelet/huh"

// Confirm asks a yes/no question on the terminal. It defaults to no.
var Confirm = func(title string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	return ok, err
}
