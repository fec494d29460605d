package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/pipios/pkg/deps"
	"github.com/matzehuels/pipios/pkg/errors"
)

// stdout receives all command output. Tests swap it for a buffer.
var stdout io.Writer = os.Stdout

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - commands
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleHighlight for package names.
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for versions and counts.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
	styleKey     = lipgloss.NewStyle().Foreground(colorGray).Width(12)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(format string, args ...any) {
	fmt.Fprintln(stdout, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Fprintln(stdout, styleIconError.Render(iconError)+" "+fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(stdout, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(msg))
}

func printInfo(format string, args ...any) {
	fmt.Fprintln(stdout, styleIconInfo.Render(iconInfo)+" "+fmt.Sprintf(format, args...))
}

// printDetail prints an indented, dimmed line.
func printDetail(format string, args ...any) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	fmt.Fprintln(stdout, styleKey.Render(key)+" "+StyleValue.Render(value))
}

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Fprintln(stdout, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

// PrintError prints err for the user, without the error-code prefixes.
func PrintError(err error) {
	printError("%s", errors.UserMessage(err))
}

// =============================================================================
// Packages
// =============================================================================

// pkgLabel renders "name version" with the version highlighted.
func pkgLabel(name, version string) string {
	if version == "" {
		return StyleHighlight.Render(name)
	}
	return StyleHighlight.Render(name) + " " + StyleNumber.Render(version)
}

// printPlan prints what a resolution decided: the packages to install in
// order, those already satisfied, and the branches that were dropped.
func printPlan(plan *deps.Plan) {
	order := plan.InstallOrder()
	satisfied := plan.Satisfied()

	if len(order) > 0 {
		fmt.Fprintln(stdout, StyleTitle.Render(fmt.Sprintf("Install (%d)", len(order))))
		for _, e := range order {
			line := "  " + StyleDim.Render(iconArrow) + " " + pkgLabel(e.Display, e.Version)
			if e.Artifact.Filename != "" {
				line += " " + StyleDim.Render(e.Artifact.Filename)
			}
			if by := plan.Dependents(e.Name); !e.Root && len(by) > 0 {
				line += " " + StyleDim.Render("(for "+strings.Join(by, ", ")+")")
			}
			fmt.Fprintln(stdout, line)
		}
	}
	for _, e := range satisfied {
		if e.Root {
			printInfo("%s already satisfied", pkgLabel(e.Display, e.Version))
		}
	}
	printProblems(plan)
}

// printProblems prints unresolved branches and version conflicts.
func printProblems(plan *deps.Plan) {
	for _, u := range plan.Unresolved {
		printWarning("skipped %s (required by %s): %s", u.Requirement, u.Parent, errors.UserMessage(u.Err))
	}
	for _, c := range plan.Conflicts {
		printWarning("%s %s does not satisfy %s (required by %s)", c.Name, c.Version, c.Requirement, c.Parent)
	}
	for _, e := range plan.Cycles() {
		printWarning("dependency cycle: %s requires %s; installed without ordering", e.From, e.To)
	}
}

// =============================================================================
// Formatting
// =============================================================================

// formatBytes renders n with a binary unit, e.g. "1.5 MB".
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

// plural returns "1 package" or "3 packages".
func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// truncate shortens s to at most width runes.
func truncate(s string, width int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}
