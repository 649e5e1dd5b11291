package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// confirmInput is swappable so prompts can be scripted in tests.
var confirmInput io.Reader = os.Stdin

func readYes() bool {
	line, _ := bufio.NewReader(confirmInput).ReadString('\n')
	line = strings.TrimSpace(strings.ToLower(line))
	return line == "y" || line == "yes"
}

// Confirm prompts the user with a yes/no question. Returns true for yes.
func Confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", StyleWarning.Render(prompt))
	return readYes()
}

// ConfirmDanger is Confirm styled with the error color, for actions that move
// funds or burn gas.
func ConfirmDanger(prompt string) bool {
	fmt.Printf("%s [y/N]: ", StyleError.Render("⚠ "+prompt))
	return readYes()
}
