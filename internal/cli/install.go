package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pipios/pkg/deps"
	"github.com/matzehuels/pipios/pkg/errors"
	planio "github.com/matzehuels/pipios/pkg/io"
	"github.com/matzehuels/pipios/pkg/pipeline"
)

// installFlags holds the flags shared by install, update and resolve.
type installFlags struct {
	requirements []string
	version      string
	upgrade      bool
	refresh      bool
	pre          bool
	dryRun       bool
	maxDepth     int
	json         bool
	output       string
}

func (f *installFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&f.requirements, "requirement", "r", nil, "install from a requirements file or poetry.lock (repeatable)")
	cmd.Flags().StringVar(&f.version, "version", "", "exact version to install (single package only)")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "ignore cached index responses")
	cmd.Flags().BoolVar(&f.pre, "pre", false, "include pre-release versions")
	cmd.Flags().IntVar(&f.maxDepth, "max-depth", deps.DefaultMaxDepth, "maximum dependency depth")
}

func (f *installFlags) resolveOptions() pipeline.ResolveOptions {
	return pipeline.ResolveOptions{
		Upgrade:          f.upgrade,
		Refresh:          f.refresh,
		AllowPrereleases: f.pre,
		MaxDepth:         f.maxDepth,
	}
}

func (c *CLI) installCommand() *cobra.Command {
	var flags installFlags
	cmd := &cobra.Command{
		Use:     "install <package>... | -r <file>",
		Aliases: []string{"i"},
		Short:   "Install packages and their dependencies",
		Long: `Install packages and their dependencies into the target directory.

Packages already present are left alone, along with everything they depend on.
Use "update" to move an installed package to the newest matching release.`,
		Example: `  pipios install requests
  pipios install "numpy>=1.24,<2" rich[jupyter]
  pipios install requests --version 2.31.0
  pipios install -r requirements.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInstall(cmd.Context(), args, flags)
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "resolve and print the plan without installing")
	return cmd
}

func (c *CLI) updateCommand() *cobra.Command {
	var flags installFlags
	cmd := &cobra.Command{
		Use:     "update <package>...",
		Aliases: []string{"u", "upgrade"},
		Short:   "Update packages to the newest matching release",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.upgrade = true
			return c.runInstall(cmd.Context(), args, flags)
		},
	}
	flags.register(cmd)
	return cmd
}

func (c *CLI) resolveCommand() *cobra.Command {
	var flags installFlags
	cmd := &cobra.Command{
		Use:   "resolve <package>... | -r <file>",
		Short: "Show what install would do without changing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.dryRun = true
			return c.runInstall(cmd.Context(), args, flags)
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&flags.upgrade, "upgrade", false, "resolve as update would")
	cmd.Flags().BoolVar(&flags.json, "json", false, "print the plan as JSON")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "write the plan as JSON to a file")
	return cmd
}

// requests builds the root requests from positional arguments and
// requirement files.
func requests(r *pipeline.Runner, args []string, flags installFlags) ([]deps.Request, error) {
	if flags.version != "" && (len(args) != 1 || len(flags.requirements) > 0) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "--version needs exactly one package")
	}

	var reqs []deps.Request
	for _, arg := range args {
		req, err := deps.ParseRequest(arg)
		if err != nil {
			return nil, err
		}
		if flags.version != "" {
			req.Version = flags.version
			req.Specifiers = nil
		}
		reqs = append(reqs, req)
	}
	for _, path := range flags.requirements {
		fromFile, err := r.ReadManifest(path)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, fromFile...)
	}
	if len(reqs) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nothing to install: name a package or pass -r <file>")
	}
	return reqs, nil
}

func (c *CLI) runInstall(ctx context.Context, args []string, flags installFlags) error {
	r, err := c.newRunner()
	if err != nil {
		return err
	}
	reqs, err := requests(r, args, flags)
	if err != nil {
		return err
	}

	prog := newProgress(c.Logger)
	spin := newSpinner(ctx, "Resolving "+requestSummary(reqs))
	spin.Start()
	plan, err := r.ResolveRequests(ctx, reqs, flags.resolveOptions())
	spin.Stop()
	if err != nil {
		return err
	}
	prog.step("resolved", "plan", plan.ID, "packages", len(plan.Entries))

	if flags.output != "" {
		if err := planio.ExportPlan(plan, flags.output); err != nil {
			return errors.Wrap(errors.ErrCodeFilesystem, err, "write plan")
		}
		if !flags.json {
			printDetail("Plan written to %s", flags.output)
		}
	}
	if flags.json {
		return planio.WritePlan(plan, stdout)
	}

	order := plan.InstallOrder()
	if flags.dryRun {
		printPlan(plan)
		if len(order) == 0 {
			printSuccess("Nothing to install")
		}
		return nil
	}

	printProblems(plan)
	for _, e := range plan.Satisfied() {
		if e.Root {
			printInfo("%s already satisfied", pkgLabel(e.Display, e.Version))
		}
	}
	if len(order) == 0 {
		printSuccess("Nothing to install")
		return nil
	}

	spin = newSpinner(ctx, fmt.Sprintf("Installing %s", plural(len(order), "package")))
	spin.Start()
	records, err := r.Install(ctx, plan)
	spin.Stop()
	for _, rec := range records {
		printSuccess("Installed %s", pkgLabel(rec.Name, rec.Version))
	}
	if err != nil {
		return err
	}

	prog.done(fmt.Sprintf("installed %s into %s", plural(len(records), "package"), r.Target()))
	return nil
}

func requestSummary(reqs []deps.Request) string {
	if len(reqs) == 1 {
		return reqs[0].String()
	}
	return fmt.Sprintf("%s and %d more", reqs[0].String(), len(reqs)-1)
}
