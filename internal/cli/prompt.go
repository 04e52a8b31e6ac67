package cli

import (
	"bufio"
	"strings"

	"github.com/spf13/cobra"
)

// confirmPrompt displays a prompt and reads user confirmation.
// Empty input, EOF and anything but y/yes decline.
func confirmPrompt(cmd *cobra.Command, prompt string) bool {
	cmd.PrintErr(prompt)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	if !scanner.Scan() {
		return false
	}

	response := strings.TrimSpace(strings.ToLower(scanner.Text()))
	return response == "y" || response == "yes"
}
