package cmdutil

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/chirino/agent-memory/internal/model"
	"github.com/chirino/agent-memory/internal/pathresolver"
)

// ProjectFlag is the --project flag shared by every subcommand that scopes
// to a project directory; empty means the current working directory.
func ProjectFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "project",
		Usage: "project directory (default: current working directory)",
	}
}

// ResolveProject returns the resolved, absolute project path named by
// --project, or the current working directory if unset.
func ResolveProject(cmd *cli.Command) (string, error) {
	p := cmd.String("project")
	if p == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("cmdutil: getwd: %w", err)
		}
		p = cwd
	}
	return pathresolver.Resolve(p)
}

// ParseScope validates s as a model.Scope, defaulting to project when empty.
func ParseScope(s string) (model.Scope, error) {
	if s == "" {
		return model.ScopeProject, nil
	}
	scope := model.Scope(s)
	if !scope.Valid() {
		return "", fmt.Errorf("invalid scope %q (want project, group, or global)", s)
	}
	return scope, nil
}

// ParseCategory validates s as a model.Category, returning nil when empty
// (meaning "unfiltered" or "auto-detect", depending on caller).
func ParseCategory(s string) (*model.Category, error) {
	if s == "" {
		return nil, nil
	}
	cat := model.Category(s)
	if !cat.Valid() {
		return nil, fmt.Errorf("invalid category %q (want factual, decision, task_history, or session_summary)", s)
	}
	return &cat, nil
}

// PrintJSON encodes v as indented JSON to stdout, the default output shape
// for every subcommand (spec.md §6: "prints JSON or a human table").
func PrintJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
