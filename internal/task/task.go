package task

import (
	"fmt"
	"strings"
)

// ContentKind selects where an output's document body comes from.
type ContentKind int

const (
	ContentInline ContentKind = iota
	ContentFile
	ContentTemplate
)

// Content is the body source for one declared output.
type Content struct {
	Kind     ContentKind
	Inline   string
	Source   string
	Template string
	Values   map[string]any
}

// Output declares one result document of a task.
type Output struct {
	Identifier string
	MediaType  string
	Encoding   string
	Indent     bool
	Content    Content
}

// Task declares one production run: an optional primary output plus any
// number of secondary outputs, committed to the filesystem as a unit.
type Task struct {
	Name    string
	BaseDir string
	Primary string
	Outputs []Output
}

func (o Output) Validate() error {
	if strings.TrimSpace(o.Identifier) == "" {
		return fmt.Errorf("output missing identifier")
	}
	switch o.Content.Kind {
	case ContentInline:
	case ContentFile:
		if strings.TrimSpace(o.Content.Source) == "" {
			return fmt.Errorf("output %q: file content requires a source path", o.Identifier)
		}
	case ContentTemplate:
		if strings.TrimSpace(o.Content.Template) == "" {
			return fmt.Errorf("output %q: template content requires a template path", o.Identifier)
		}
	default:
		return fmt.Errorf("output %q: unknown content kind %d", o.Identifier, o.Content.Kind)
	}
	return nil
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("task missing name")
	}
	if len(t.Outputs) == 0 {
		return fmt.Errorf("task %q declares no outputs", t.Name)
	}
	for i, o := range t.Outputs {
		if err := o.Validate(); err != nil {
			return fmt.Errorf("task %q output[%d]: %w", t.Name, i, err)
		}
	}
	return nil
}
