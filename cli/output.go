package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/buger/goterm"
	"github.com/fatih/color"
)

var (
	userInputColor = color.New(color.FgWhite)
	aiOutputColor  = color.New(color.FgCyan)
	statusColor    = color.New(color.FgHiBlack)
	errorColor     = color.New(color.FgRed)
	titleColor     = color.New(color.FgMagenta, color.Bold)
	promptColor    = color.New(color.FgHiBlue)
)

func width() int {
	if w := goterm.Width(); w > 0 {
		return w
	}
	return 80
}

// title prints text centred in a separator line.
func title(w io.Writer, text string, args ...any) {
	t := "      " + fmt.Sprintf(text, args...) + "      "
	total := width()
	if len(t) >= total {
		titleColor.Fprintln(w, t)
		return
	}
	left := (total - len(t)) / 2
	titleColor.Fprintln(w, strings.Repeat("-", left)+t+strings.Repeat("-", total-len(t)-left))
}

func userInput(w io.Writer, text string) {
	userInputColor.Fprintln(w, "> "+text)
}

func aiOutput(w io.Writer, text string) {
	aiOutputColor.Fprintln(w, text)
}

func status(w io.Writer, text string, args ...any) {
	statusColor.Fprintf(w, text+"\n", args...)
}

func errorLine(w io.Writer, text string, args ...any) {
	errorColor.Fprintf(w, text+"\n", args...)
}
