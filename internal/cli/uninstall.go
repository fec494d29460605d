package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func (c *CLI) uninstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "uninstall <package>...",
		Aliases: []string{"delete", "d", "remove"},
		Short:   "Remove installed packages",
		Long: `Remove installed packages from the target directory.

Only the named packages are removed; their dependencies stay installed.`,
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: c.completeInstalled,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runUninstall(cmd.Context(), args)
		},
	}
}

func (c *CLI) runUninstall(ctx context.Context, names []string) error {
	r, err := c.newRunner()
	if err != nil {
		return err
	}
	for _, name := range names {
		removed, err := r.Uninstall(ctx, name)
		if err != nil {
			return err
		}
		if removed {
			printSuccess("Removed %s", pkgLabel(name, ""))
		} else {
			printWarning("%s is not installed", name)
		}
	}
	return nil
}
