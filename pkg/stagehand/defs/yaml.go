// Package defs loads workflow definitions from YAML files so deployments
// can declare workflows without recompiling. Capabilities are still bound
// in code at registration time; the file only carries the shape of the
// workflow.
package defs

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tmandere/stagehand/pkg/stagehand/domain"
	"github.com/tmandere/stagehand/pkg/stagehand/models"
)

type taskYAML struct {
	ID           string        `yaml:"id"`
	Category     string        `yaml:"category"`
	DependsOn    []string      `yaml:"dependsOn"`
	Timeout      time.Duration `yaml:"timeout"`
	RetryBudget  int           `yaml:"retryBudget"`
	Handler      string        `yaml:"handler"`
	ApproverRole string        `yaml:"approverRole"`
	ResultKey    string        `yaml:"resultKey"`
	RecipientKey string        `yaml:"recipientKey"`
}

type workflowYAML struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Tasks       []taskYAML `yaml:"tasks"`
	Order       []string   `yaml:"order"`
}

type fileYAML struct {
	Workflows []workflowYAML `yaml:"workflows"`
}

// ParseYAML decodes one or more workflow definitions from YAML bytes.
func ParseYAML(data []byte) ([]domain.WorkflowDefinition, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("definitions payload is empty")
	}

	var file fileYAML
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode definitions: %w", err)
	}
	if len(file.Workflows) == 0 {
		return nil, fmt.Errorf("definitions payload declares no workflows")
	}

	defs := make([]domain.WorkflowDefinition, 0, len(file.Workflows))
	for _, wf := range file.Workflows {
		def, err := toDefinition(wf)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// LoadReader reads workflow definitions from an io.Reader.
func LoadReader(r io.Reader) ([]domain.WorkflowDefinition, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read definitions: %w", err)
	}
	return ParseYAML(content)
}

// LoadFile loads workflow definitions from a YAML file on disk.
func LoadFile(path string) ([]domain.WorkflowDefinition, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	defs, parseErr := ParseYAML(content)
	if parseErr != nil {
		return nil, fmt.Errorf("%s: %w", path, parseErr)
	}
	return defs, nil
}

func toDefinition(wf workflowYAML) (domain.WorkflowDefinition, error) {
	if wf.Name == "" {
		return domain.WorkflowDefinition{}, fmt.Errorf("workflow is missing a name")
	}

	tasks := make([]domain.TaskDescriptor, 0, len(wf.Tasks))
	for _, t := range wf.Tasks {
		category, err := models.ParseTaskCategory(t.Category)
		if err != nil {
			return domain.WorkflowDefinition{}, fmt.Errorf("workflow %q task %q: %w", wf.Name, t.ID, err)
		}
		tasks = append(tasks, domain.TaskDescriptor{
			ID:           t.ID,
			Category:     category,
			DependsOn:    append([]string(nil), t.DependsOn...),
			Timeout:      t.Timeout,
			RetryBudget:  t.RetryBudget,
			Handler:      t.Handler,
			ApproverRole: t.ApproverRole,
			ResultKey:    t.ResultKey,
			RecipientKey: t.RecipientKey,
		})
	}

	return domain.WorkflowDefinition{
		Name:        wf.Name,
		Description: wf.Description,
		Tasks:       tasks,
		Order:       append([]string(nil), wf.Order...),
	}, nil
}
