package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for pipios.

Bash:
  $ source <(pipios completion bash)

Zsh:
  $ pipios completion zsh > "${fpath[1]}/_pipios"

Fish:
  $ pipios completion fish > ~/.config/fish/completions/pipios.fish

PowerShell:
  PS> pipios completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(stdout, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(stdout)
			}
			return nil
		},
	}
}

// completeInstalled completes the names of installed packages.
func (c *CLI) completeInstalled(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	r, err := c.newRunner()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	recs, err := r.List()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var out []string
	for _, rec := range recs {
		if strings.HasPrefix(strings.ToLower(rec.Name), strings.ToLower(toComplete)) {
			out = append(out, rec.Name+"\t"+rec.Version)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
