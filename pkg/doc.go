// Package pkg provides the core libraries for pipios, a package installer
// for embedded Python runtimes that cannot run pip themselves.
//
// # Overview
//
// pipios resolves packages against a Python package index and unpacks the
// chosen artifacts into a single target directory. The pkg directory is
// organized into these areas:
//
//  1. Parsing: [version], [specifier], [requirement] and [artifact] model
//     release versions, version ranges, dependency lines with markers, and
//     distribution filenames.
//  2. Resolution: [deps] builds an install [deps.Plan] from root requests;
//     [deps/python] adapts the index client and reads requirement files.
//  3. Installation: [install] downloads, verifies and extracts artifacts;
//     [site] indexes what is already present in the target directory.
//  4. Infrastructure: [integrations] and [integrations/pypi] talk to the
//     index; [cache], [httputil], [errors] and [observability] back them.
//  5. Orchestration: [pipeline] wires everything behind one [pipeline.Runner].
//
// # Architecture
//
// The typical data flow:
//
//	requests / requirements.txt / poetry.lock
//	         ↓
//	    [deps] resolver (index metadata, markers, installed check)
//	         ↓
//	    [deps.Plan] (dependencies before dependents)
//	         ↓
//	    [install] (download → verify → extract → record)
//	         ↓
//	    target directory with <name>-<version>.dist-info entries
//
// # Quick Start
//
//	runner, err := pipeline.NewRunner(pipeline.Options{
//	    Target: "/path/to/site-packages",
//	    Env:    env,
//	})
//	if err != nil {
//	    return err
//	}
//	plan, err := runner.Resolve(ctx, "requests", "")
//	if err != nil {
//	    return err
//	}
//	records, err := runner.Install(ctx, plan)
//
// # Testing
//
//	go test ./...                        # All tests
//	go test ./pkg/deps/...               # Specific package
//
// [version]: https://pkg.go.dev/github.com/matzehuels/pipios/pkg/version
// [specifier]: https://pkg.go.dev/github.com/matzehuels/pipios/pkg/specifier
// [requirement]: https://pkg.go.dev/github.com/matzehuels/pipios/pkg/requirement
// [artifact]: https://pkg.go.dev/github.com/matzehuels/pipios/pkg/artifact
// [deps]: https://pkg.go.dev/github.com/matzehuels/pipios/pkg/deps
// [deps.Plan]: https://pkg.go.dev/github.com/matzehuels/pipios/pkg/deps#Plan
// [deps/python]: https://pkg.go.dev/github.com/matzehuels/pipios/pkg/deps/python
// [install]: https://pkg.go.dev/github.com/matzehuels/pipios/pkg/install
// [site]: https://pkg.go.dev/github.com/matzehuels/pipios/pkg/site
// [integrations]: https://pkg.go.dev/github.com/matzehuels/pipios/pkg/integrations
// [integrations/pypi]: https://pkg.go.dev/github.com/matzehuels/pipios/pkg/integrations/pypi
// [cache]: https://pkg.go.dev/github.com/matzehuels/pipios/pkg/cache
// [httputil]: https://pkg.go.dev/github.com/matzehuels/pipios/pkg/httputil
// [errors]: https://pkg.go.dev/github.com/matzehuels/pipios/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/pipios/pkg/observability
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/pipios/pkg/pipeline
// [pipeline.Runner]: https://pkg.go.dev/github.com/matzehuels/pipios/pkg/pipeline#Runner
package pkg
