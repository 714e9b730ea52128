package cli

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

// readLine reads one line without its newline. A final unterminated line is
// returned before io.EOF.
func (a *app) readLine() (string, error) {
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ask prompts until the answer is one of choices. An empty answer picks def.
func (a *app) ask(prompt string, choices []string, def string) (string, error) {
	for {
		fmt.Fprintf(a.out, "\n%s %s (%s): ", boldStyle.Render(prompt), dimStyle.Render("["+strings.Join(choices, "/")+"]"), def)
		answer, err := a.readLine()
		if err != nil {
			return "", err
		}
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer == "" {
			return def, nil
		}
		if slices.Contains(choices, answer) {
			return answer, nil
		}
		fmt.Fprintln(a.out, redStyle.Render("Please select one of the available options"))
	}
}

// confirm asks a y/n question.
func (a *app) confirm(prompt string, def bool) (bool, error) {
	d := "n"
	if def {
		d = "y"
	}
	answer, err := a.ask(prompt, []string{"y", "n"}, d)
	return answer == "y", err
}
