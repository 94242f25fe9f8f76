package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// Prompts share one buffered reader per input so piped answers are not
// swallowed by an earlier prompt's buffer.
var (
	promptSource io.Reader
	promptReader *bufio.Reader
)

func readLine(cmd *cobra.Command) (string, error) {
	if in := cmd.InOrStdin(); in != promptSource {
		promptSource = in
		promptReader = bufio.NewReader(in)
	}
	line, err := promptReader.ReadString('\n')
	return strings.TrimSpace(line), err
}

// readValue returns flagVal, or prompts on stderr and reads one line from
// the command's input.
func readValue(cmd *cobra.Command, flagVal, prompt string) (string, error) {
	if flagVal != "" {
		return flagVal, nil
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s: ", prompt)
	line, err := readLine(cmd)
	if line == "" {
		if err != nil {
			return "", fmt.Errorf("read %s: %w", strings.ToLower(prompt), err)
		}
		return "", errors.New(strings.ToLower(prompt) + " is required")
	}
	return line, nil
}

// confirm asks a yes/no question; anything but "y" is no.
func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N] ", question)
	line, _ := readLine(cmd)
	return strings.EqualFold(line, "y")
}
