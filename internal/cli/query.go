package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pipios/pkg/errors"
	"github.com/matzehuels/pipios/pkg/site"
)

func (c *CLI) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"l", "ls"},
		Short:   "List installed packages",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.newRunner()
			if err != nil {
				return err
			}
			recs, err := r.List()
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				printInfo("No packages installed in %s", r.Target())
				printNextStep("Install one with", appName+" install <package>")
				return nil
			}
			printRecords(recs)
			return nil
		},
	}
}

// printRecords prints one aligned row per package.
func printRecords(recs []site.Record) {
	nameWidth, versionWidth := 0, 0
	for _, rec := range recs {
		nameWidth = max(nameWidth, lipgloss.Width(rec.Name))
		versionWidth = max(versionWidth, lipgloss.Width(rec.Version))
	}
	nameStyle := StyleHighlight.Width(nameWidth + 2)
	versionStyle := StyleNumber.Width(versionWidth + 2)
	for _, rec := range recs {
		fmt.Fprintln(stdout, nameStyle.Render(rec.Name)+versionStyle.Render(rec.Version)+StyleDim.Render(truncate(rec.Summary, 60)))
	}
}

func (c *CLI) showCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "show <package>",
		Aliases:           []string{"info", "p"},
		Short:             "Show details of an installed package",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeInstalled,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.newRunner()
			if err != nil {
				return err
			}
			rec, err := r.Lookup(args[0])
			if err != nil {
				return err
			}
			if rec == nil {
				return errors.New(errors.ErrCodeNotFound, "%s is not installed", args[0])
			}
			usage, err := r.Size(args[0])
			if err != nil {
				return err
			}

			printKeyValue("Name", rec.Name)
			printKeyValue("Version", rec.Version)
			if rec.Summary != "" {
				printKeyValue("Summary", rec.Summary)
			}
			if rp := rec.Manifest.Get(site.KeyRequiresPython); rp != "" {
				printKeyValue("Python", rp)
			}
			if len(rec.Requires) > 0 {
				printKeyValue("Requires", rec.Requires[0])
				for _, line := range rec.Requires[1:] {
					printKeyValue("", line)
				}
			}
			printKeyValue("Location", r.Target())
			if len(usage) == 1 {
				printKeyValue("Size", fmt.Sprintf("%s in %s", formatBytes(usage[0].Bytes), plural(usage[0].Files, "file")))
			}
			return nil
		},
	}
}

func (c *CLI) releasesCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:     "releases <package>",
		Aliases: []string{"versions"},
		Short:   "List the versions published for a package",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.newRunner()
			if err != nil {
				return err
			}
			versions, latest, err := r.Releases(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			installed := ""
			if rec, err := r.Lookup(args[0]); err == nil && rec != nil {
				installed = rec.Version
			}

			shown := versions
			if limit > 0 && len(shown) > limit {
				shown = shown[len(shown)-limit:]
			}
			for i := len(shown) - 1; i >= 0; i-- {
				v := shown[i]
				var tags []string
				if v == latest {
					tags = append(tags, "latest")
				}
				if v == installed {
					tags = append(tags, "installed")
				}
				line := "  " + StyleNumber.Render(v)
				if len(tags) > 0 {
					line += " " + StyleDim.Render("("+strings.Join(tags, ", ")+")")
				}
				fmt.Fprintln(stdout, line)
			}
			if len(shown) < len(versions) {
				printDetail("%d older releases hidden, use --limit 0 to show all", len(versions)-len(shown))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "show at most this many releases (0 for all)")
	return cmd
}

func (c *CLI) pathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the install directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.newRunner()
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, r.Target())
			return nil
		},
	}
}

func (c *CLI) countCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of installed packages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.newRunner()
			if err != nil {
				return err
			}
			recs, err := r.List()
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, len(recs))
			return nil
		},
	}
}

func (c *CLI) sizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "size [package]",
		Short: "Show disk usage of installed packages",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.newRunner()
			if err != nil {
				return err
			}
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			usage, err := r.Size(name)
			if err != nil {
				return err
			}

			var files int
			var total int64
			for _, u := range usage {
				printKeyValue(u.Name, formatBytes(u.Bytes))
				files += u.Files
				total += u.Bytes
			}
			if len(usage) > 1 {
				printInfo("%s in %s across %s", formatBytes(total), plural(files, "file"), plural(len(usage), "package"))
			}
			return nil
		},
	}
}
