// Package deps resolves package requests into installation plans.
//
// # Overview
//
// A [Resolver] walks the dependency declarations of the requested packages
// and produces a [Plan]: one [Entry] per reachable package with the version
// and artifact chosen for the target [requirement.Environment].
//
//	res := deps.NewResolver(registry, site.NewIndex(target))
//	plan, err := res.Resolve(ctx, []deps.Request{{Name: "flask"}}, deps.Options{
//	    Env:     env,
//	    Workers: 8,
//	})
//
// # Resolution
//
// For every package the resolver:
//
//  1. Stops if the installed index already holds a complete install
//     ([StatusSatisfied]). Its own dependencies are trusted, not re-checked.
//  2. Fetches the release history from the [Registry] and picks a version
//     with [SelectVersion], or uses the pinned version of a root request.
//  3. Selects an artifact with [artifact.Select].
//  4. Parses the release's dependency lines, evaluates their predicates
//     with the root feature flags plus the extras named on the incoming
//     line, and recurses into those that apply.
//
// Sibling dependencies are resolved concurrently with at most
// [Options.Workers] registry fetches in flight. Each name is resolved once;
// the first branch to reach it decides its version, which also makes
// circular declarations terminate. Requirements the chosen version does not
// meet are reported in [Plan.Conflicts].
//
// # Errors
//
// Errors on a root request cancel every branch and are returned unchanged.
// Below the root, branch-local failures ([errors.IsBranchLocal]) drop only the
// affected subtree and are listed in [Plan.Unresolved]. Filesystem errors
// while reading the installed index are always fatal.
//
// # Install order
//
// [Plan.InstallOrder] returns the entries to install with every dependency
// before its dependents, using [dag.DependencyOrder] on [Plan.Graph].
//
// [errors.IsBranchLocal]: github.com/matzehuels/pipios/pkg/errors.IsBranchLocal
package deps
