package tools

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"unicode/utf8"

	"github.com/petasbytes/toolbridge/internal/fsops"
)

const (
	readFileDefaultLimit  = 200
	readFileMaxLineRunes  = 2000
	readFileMaxRunes      = 12_000
	listFilesDefaultLimit = 200
)

type ReadFileInput struct {
	Path   string `json:"path" jsonschema:"minLength=1" jsonschema_description:"Relative file path."`
	Offset int    `json:"offset,omitempty" jsonschema:"minimum=0" jsonschema_description:"0-based line to start from."`
	Limit  int    `json:"limit,omitempty" jsonschema_description:"Maximum lines to return (default 200)."`
}

// ReadFileDefinition returns read_file bound to sb.
func ReadFileDefinition(sb *fsops.Sandbox) ToolDefinition {
	return Define("read_file",
		"Read a text file by relative path within the workspace. Long files are paged; a trailing note in brackets tells you how to read more.",
		func(_ context.Context, in ReadFileInput) (any, error) { return readFile(sb, in) },
	)
}

// readFile returns a page of lines, each clipped to readFileMaxLineRunes, and
// stops before the page exceeds readFileMaxRunes. A bracketed note follows
// whenever the page is not the whole file.
func readFile(sb *fsops.Sandbox, in ReadFileInput) (string, error) {
	content, err := sb.ReadFile(in.Path)
	if err != nil {
		return "", err
	}
	if content == "" {
		return "", nil
	}
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	total := len(lines)

	start := max(in.Offset, 0)
	if start >= total {
		return fmt.Sprintf("[offset %d is past the end; the file has %d lines]\n", start, total), nil
	}
	limit := in.Limit
	if limit <= 0 {
		limit = readFileDefaultLimit
	}
	end := min(start+limit, total)

	var b strings.Builder
	used, clipped := 0, false
	for i := start; i < end; i++ {
		line := lines[i]
		if utf8.RuneCountInString(line) > readFileMaxLineRunes {
			line = string([]rune(line)[:readFileMaxLineRunes])
			clipped = true
		}
		n := utf8.RuneCountInString(line) + 1
		if used+n > readFileMaxRunes {
			end = i
			break
		}
		used += n
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if start > 0 || end < total || clipped {
		fmt.Fprintf(&b, "[lines %d-%d of %d", start+1, end, total)
		if clipped {
			b.WriteString("; long lines clipped")
		}
		if end < total {
			fmt.Fprintf(&b, "; continue with offset=%d", end)
		}
		b.WriteString("]\n")
	}
	return b.String(), nil
}

type ListFilesInput struct {
	Path   string `json:"path,omitempty" jsonschema_description:"Relative directory to list (default: workspace root)."`
	Offset int    `json:"offset,omitempty" jsonschema:"minimum=0" jsonschema_description:"Number of entries to skip."`
	Limit  int    `json:"limit,omitempty" jsonschema_description:"Maximum entries to return (default 200)."`
}

// ListFilesResult is one page of a sorted directory listing.
type ListFilesResult struct {
	Path    string   `json:"path"`
	Entries []string `json:"entries"`
	Total   int      `json:"total"`
	// Next is the offset of the following page, or 0 when this page is the last.
	Next int `json:"next,omitempty"`
}

// ListFilesDefinition returns list_files bound to sb.
func ListFilesDefinition(sb *fsops.Sandbox) ToolDefinition {
	return Define("list_files",
		"List a directory within the workspace (non-recursive, sorted). Directory names end with '/'.",
		func(_ context.Context, in ListFilesInput) (any, error) { return listFiles(sb, in) },
	)
}

func listFiles(sb *fsops.Sandbox, in ListFilesInput) (ListFilesResult, error) {
	names, err := sb.ListDir(in.Path)
	if err != nil {
		return ListFilesResult{}, err
	}
	res := ListFilesResult{Path: in.Path, Total: len(names), Entries: []string{}}
	if res.Path == "" {
		res.Path = "."
	}
	limit := in.Limit
	if limit <= 0 {
		limit = listFilesDefaultLimit
	}
	start := max(in.Offset, 0)
	if start >= len(names) {
		return res, nil
	}
	end := min(start+limit, len(names))
	res.Entries = names[start:end]
	if end < len(names) {
		res.Next = end
	}
	return res, nil
}

type EditFileInput struct {
	Path   string `json:"path" jsonschema:"minLength=1" jsonschema_description:"Relative file path."`
	OldStr string `json:"old_str,omitempty" jsonschema_description:"Exact text to replace. Leave empty to create a new file."`
	NewStr string `json:"new_str" jsonschema_description:"Replacement text, or the content of a new file."`
}

// EditFileResult describes what edit_file changed.
type EditFileResult struct {
	Path         string `json:"path"`
	Created      bool   `json:"created"`
	Replacements int    `json:"replacements"`
}

var (
	errSameStrings  = errors.New("old_str and new_str must differ")
	errNeedOldStr   = errors.New("file exists; old_str must be provided to edit it")
	errOldStrAbsent = errors.New("old_str not found in file")
)

// EditFileDefinition returns edit_file bound to sb.
func EditFileDefinition(sb *fsops.Sandbox) ToolDefinition {
	return Define("edit_file",
		`Create or modify a text file by relative path within the workspace.

With an empty old_str the file must not exist yet and is created with new_str.
Otherwise every occurrence of old_str is replaced with new_str.`,
		func(_ context.Context, in EditFileInput) (any, error) { return editFile(sb, in) },
	)
}

func editFile(sb *fsops.Sandbox, in EditFileInput) (EditFileResult, error) {
	if in.OldStr == in.NewStr {
		return EditFileResult{}, errSameStrings
	}
	res := EditFileResult{Path: in.Path}

	current, err := sb.ReadFile(in.Path)
	if err != nil {
		if in.OldStr != "" || !errors.Is(err, fs.ErrNotExist) {
			return EditFileResult{}, err
		}
		if err := sb.WriteFile(in.Path, in.NewStr); err != nil {
			return EditFileResult{}, err
		}
		res.Created = true
		return res, nil
	}
	if in.OldStr == "" {
		return EditFileResult{}, errNeedOldStr
	}

	res.Replacements = strings.Count(current, in.OldStr)
	if res.Replacements == 0 {
		return EditFileResult{}, errOldStrAbsent
	}
	if err := sb.WriteFile(in.Path, strings.ReplaceAll(current, in.OldStr, in.NewStr)); err != nil {
		return EditFileResult{}, err
	}
	return res, nil
}
