// Package io exports resolved install plans as JSON.
//
// # Format
//
// A plan document lists every package the resolver reached, the edges
// between them, and any branches that were dropped:
//
//	{
//	  "id": "6f1c...",
//	  "roots": ["demo"],
//	  "packages": [
//	    {"name": "demo", "version": "1.1.0", "status": "install", "root": true,
//	     "requires": ["libx"],
//	     "artifact": {"filename": "demo-1.1.0-py3-none-any.whl", "url": "...", "sha256": "..."}},
//	    {"name": "libx", "version": "2.5.0", "status": "satisfied", "depth": 1,
//	     "required_by": ["demo"]}
//	  ],
//	  "edges": [{"from": "demo", "to": "libx", "requirement": "libx (>=2.0,<3.0)"}],
//	  "cycles": [],
//	  "install_order": ["demo"],
//	  "unresolved": [],
//	  "conflicts": []
//	}
//
// Packages and edges are sorted, so two resolutions of the same inputs
// against the same index produce identical documents apart from "id".
//
// Use [WritePlan] for any io.Writer or [ExportPlan] for a file path.
package io
