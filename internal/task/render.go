package task

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// render writes one output's document body to the staging writer. File
// content streams straight through; inline and template content is rendered
// in memory first so JSON indentation can be applied.
func render(w io.Writer, out Output, baseDir string) error {
	var body []byte
	switch out.Content.Kind {
	case ContentInline:
		body = []byte(out.Content.Inline)
	case ContentFile:
		src, err := os.Open(anchor(baseDir, out.Content.Source))
		if err != nil {
			return fmt.Errorf("open source: %w", err)
		}
		defer src.Close()
		if !wantsIndentedJSON(out) {
			_, err := io.Copy(w, src)
			return err
		}
		body, err = io.ReadAll(src)
		if err != nil {
			return fmt.Errorf("read source: %w", err)
		}
	case ContentTemplate:
		path := anchor(baseDir, out.Content.Template)
		tpl, err := template.ParseFiles(path)
		if err != nil {
			return fmt.Errorf("parse template: %w", err)
		}
		var buf bytes.Buffer
		if err := tpl.Execute(&buf, out.Content.Values); err != nil {
			return fmt.Errorf("execute template: %w", err)
		}
		body = buf.Bytes()
	default:
		return fmt.Errorf("unknown content kind %d", out.Content.Kind)
	}

	if wantsIndentedJSON(out) {
		var buf bytes.Buffer
		if err := json.Indent(&buf, body, "", "  "); err != nil {
			return fmt.Errorf("indent json: %w", err)
		}
		body = buf.Bytes()
	}

	_, err := w.Write(body)
	return err
}

func wantsIndentedJSON(out Output) bool {
	return out.Indent && strings.Contains(strings.ToLower(out.MediaType), "json")
}

// anchor resolves a declared path against the task's base directory.
func anchor(baseDir, p string) string {
	if baseDir == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}
