package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/xformctl/xformctl/internal/task"
)

type fileOutput struct {
	Identifier string         `toml:"identifier"`
	MediaType  string         `toml:"media_type"`
	Encoding   string         `toml:"encoding"`
	Indent     bool           `toml:"indent"`
	Inline     *string        `toml:"inline"`
	Source     *string        `toml:"source"`
	Template   *string        `toml:"template"`
	Values     map[string]any `toml:"values"`
}

type fileTask struct {
	Name    string       `toml:"name"`
	BaseDir string       `toml:"base_dir"`
	Primary string       `toml:"primary"`
	Outputs []fileOutput `toml:"output"`
}

// loadTask reads a task declaration. A missing name defaults to the file's
// stem; a missing base_dir defaults to the task file's directory.
func loadTask(path string) (task.Task, error) {
	var raw fileTask
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return task.Task{}, fmt.Errorf("load task (%s): %w", path, err)
	}

	t := task.Task{
		Name:    strings.TrimSpace(raw.Name),
		BaseDir: strings.TrimSpace(raw.BaseDir),
		Primary: strings.TrimSpace(raw.Primary),
	}
	if t.Name == "" {
		t.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if !meta.IsDefined("base_dir") || t.BaseDir == "" {
		t.BaseDir = filepath.Dir(path)
	} else if !filepath.IsAbs(t.BaseDir) {
		t.BaseDir = filepath.Join(filepath.Dir(path), t.BaseDir)
	}

	for i, out := range raw.Outputs {
		converted, err := convertOutput(out)
		if err != nil {
			return task.Task{}, fmt.Errorf("task %q output[%d]: %w", t.Name, i, err)
		}
		t.Outputs = append(t.Outputs, converted)
	}

	if err := t.Validate(); err != nil {
		return task.Task{}, err
	}
	return t, nil
}

func convertOutput(raw fileOutput) (task.Output, error) {
	out := task.Output{
		Identifier: strings.TrimSpace(raw.Identifier),
		MediaType:  strings.TrimSpace(raw.MediaType),
		Encoding:   strings.TrimSpace(raw.Encoding),
		Indent:     raw.Indent,
	}

	sources := 0
	if raw.Inline != nil {
		sources++
		out.Content = task.Content{Kind: task.ContentInline, Inline: *raw.Inline}
	}
	if raw.Source != nil {
		sources++
		out.Content = task.Content{Kind: task.ContentFile, Source: strings.TrimSpace(*raw.Source)}
	}
	if raw.Template != nil {
		sources++
		out.Content = task.Content{
			Kind:     task.ContentTemplate,
			Template: strings.TrimSpace(*raw.Template),
			Values:   raw.Values,
		}
	}
	if sources != 1 {
		return task.Output{}, fmt.Errorf("exactly one of inline, source, template is required")
	}
	if raw.Values != nil && out.Content.Kind != task.ContentTemplate {
		return task.Output{}, fmt.Errorf("values are only valid with template content")
	}
	return out, nil
}
