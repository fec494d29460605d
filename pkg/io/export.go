package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/pipios/pkg/dag"
	"github.com/matzehuels/pipios/pkg/deps"
)

type plan struct {
	ID           string       `json:"id"`
	Roots        []string     `json:"roots"`
	Packages     []pkg        `json:"packages"`
	Edges        []edge       `json:"edges"`
	Cycles       []edge       `json:"cycles"`
	InstallOrder []string     `json:"install_order"`
	Unresolved   []unresolved `json:"unresolved"`
	Conflicts    []conflict   `json:"conflicts"`
}

type pkg struct {
	Name     string   `json:"name"`
	Display  string   `json:"display,omitempty"`
	Version  string   `json:"version"`
	Status   string   `json:"status"`
	Root     bool     `json:"root,omitempty"`
	Depth    int      `json:"depth,omitempty"`
	Extras   []string `json:"extras,omitempty"`
	Summary  string   `json:"summary,omitempty"`
	Requires []string `json:"requires,omitempty"`
	Required []string `json:"required_by,omitempty"`
	Artifact *file    `json:"artifact,omitempty"`
}

type file struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Kind     string `json:"kind"`
	Platform string `json:"platform"`
	SHA256   string `json:"sha256,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

type edge struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Requirement string `json:"requirement,omitempty"`
}

type unresolved struct {
	Name        string `json:"name"`
	Requirement string `json:"requirement,omitempty"`
	Parent      string `json:"parent,omitempty"`
	Error       string `json:"error"`
}

type conflict struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Requirement string `json:"requirement"`
	Parent      string `json:"parent"`
}

// WritePlan encodes p as indented JSON and writes it to w.
func WritePlan(p *deps.Plan, w io.Writer) error {
	if p == nil {
		return fmt.Errorf("encode: nil plan")
	}
	out := plan{
		ID:           p.ID,
		Roots:        nonNil(p.Roots),
		Packages:     make([]pkg, 0, len(p.Entries)),
		Edges:        []edge{},
		Cycles:       []edge{},
		InstallOrder: []string{},
		Unresolved:   make([]unresolved, 0, len(p.Unresolved)),
		Conflicts:    make([]conflict, 0, len(p.Conflicts)),
	}

	for _, e := range p.Entries {
		pk := pkg{
			Name:     e.Name,
			Version:  e.Version,
			Status:   string(e.Status),
			Root:     e.Root,
			Depth:    e.Depth,
			Extras:   e.Extras,
			Summary:  e.Summary,
			Requires: p.Dependencies(e.Name),
			Required: p.Dependents(e.Name),
		}
		if e.Display != e.Name {
			pk.Display = e.Display
		}
		if e.Status == deps.StatusInstall {
			pk.Artifact = &file{
				Filename: e.Artifact.Filename,
				URL:      e.Artifact.URL,
				Kind:     string(e.Artifact.Kind),
				Platform: e.Artifact.Platform(),
				SHA256:   e.Artifact.SHA256,
				Size:     e.Artifact.Size,
			}
		}
		out.Packages = append(out.Packages, pk)
	}
	if g := p.Graph(); g != nil {
		for _, e := range g.Edges() {
			out.Edges = append(out.Edges, newEdge(e))
		}
	}
	for _, e := range p.Cycles() {
		out.Cycles = append(out.Cycles, newEdge(e))
	}
	for _, e := range p.InstallOrder() {
		out.InstallOrder = append(out.InstallOrder, e.Name)
	}
	for _, u := range p.Unresolved {
		msg := ""
		if u.Err != nil {
			msg = u.Err.Error()
		}
		out.Unresolved = append(out.Unresolved, unresolved{
			Name:        u.Name,
			Requirement: u.Requirement,
			Parent:      u.Parent,
			Error:       msg,
		})
	}
	for _, c := range p.Conflicts {
		out.Conflicts = append(out.Conflicts, conflict(c))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportPlan writes p to a JSON file at path.
func ExportPlan(p *deps.Plan, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WritePlan(p, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func newEdge(e dag.Edge) edge {
	req, _ := e.Meta["requirement"].(string)
	return edge{From: e.From, To: e.To, Requirement: req}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
