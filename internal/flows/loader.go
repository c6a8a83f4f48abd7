package flows

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/forgeflowhq/forgeflow/internal/workflow"
)

// Definition is one workflow entry of the workflows file.
type Definition struct {
	Type string `yaml:"type"`

	// shared_labels
	Repositories []string `yaml:"repositories"`

	// board workflows
	Org     string `yaml:"org"`
	Project string `yaml:"project"`

	OriginColumn  int64  `yaml:"origin_column"`
	TargetColumn  int64  `yaml:"target_column"`
	DoingColumn   int64  `yaml:"doing_column"`
	Column        int64  `yaml:"column"`
	BranchPattern string `yaml:"branch_pattern"`
}

type flowsFile struct {
	Workflows []Definition `yaml:"workflows"`
}

// Load reads the workflows file and constructs the configured workflow
// instances in file order.
func Load(path string) ([]workflow.Workflow, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workflows file: %w", err)
	}

	var file flowsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parsing workflows file: %w", err)
	}
	if len(file.Workflows) == 0 {
		return nil, fmt.Errorf("workflows file %s defines no workflows", path)
	}

	workflows := make([]workflow.Workflow, 0, len(file.Workflows))
	for i, def := range file.Workflows {
		w, err := Build(def)
		if err != nil {
			return nil, fmt.Errorf("workflow %d: %w", i+1, err)
		}
		workflows = append(workflows, w)
	}
	return workflows, nil
}

// Build constructs a single workflow from its definition.
func Build(def Definition) (workflow.Workflow, error) {
	switch def.Type {
	case "shared_labels":
		if len(def.Repositories) < 2 {
			return nil, fmt.Errorf("shared_labels needs at least two repositories")
		}
		return NewLabelSync(def.Repositories), nil

	case "move_issues_on_commit":
		if err := requireBoard(def); err != nil {
			return nil, err
		}
		if def.OriginColumn == 0 || def.TargetColumn == 0 {
			return nil, fmt.Errorf("move_issues_on_commit needs origin_column and target_column")
		}
		return NewCommitMover(def.Org, def.Project, def.OriginColumn, def.TargetColumn), nil

	case "project_issues":
		if err := requireBoard(def); err != nil {
			return nil, err
		}
		if def.DoingColumn == 0 {
			return nil, fmt.Errorf("project_issues needs doing_column")
		}
		pattern := def.BranchPattern
		if pattern == "" {
			pattern = `\d+`
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid branch_pattern: %w", err)
		}
		return NewBranchMover(def.Org, def.Project, def.DoingColumn, re), nil

	case "close_issues_in_column":
		if err := requireBoard(def); err != nil {
			return nil, err
		}
		if def.Column == 0 {
			return nil, fmt.Errorf("close_issues_in_column needs column")
		}
		return NewIssueCloser(def.Org, def.Project, def.Column), nil

	case "move_issues_between_repos":
		if err := requireBoard(def); err != nil {
			return nil, err
		}
		if def.OriginColumn == 0 || def.TargetColumn == 0 {
			return nil, fmt.Errorf("move_issues_between_repos needs origin_column and target_column")
		}
		return NewIssueMover(def.Org, def.Project, def.OriginColumn, def.TargetColumn), nil

	case "":
		return nil, fmt.Errorf("workflow definition is missing a type")
	default:
		return nil, fmt.Errorf("unknown workflow type %q", def.Type)
	}
}

func requireBoard(def Definition) error {
	if def.Org == "" || def.Project == "" {
		return fmt.Errorf("%s needs org and project", def.Type)
	}
	return nil
}
