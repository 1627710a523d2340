package gqlexec

import (
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
)

// selectionDepth is the nesting depth of set, not counting introspection
// fields.
func selectionDepth(set ast.SelectionSet, visited map[string]bool) int {
	deepest := 0
	for _, sel := range set {
		var d int
		switch sel := sel.(type) {
		case *ast.Field:
			if strings.HasPrefix(sel.Name, "__") {
				continue
			}
			d = 1 + selectionDepth(sel.SelectionSet, visited)
		case *ast.InlineFragment:
			d = selectionDepth(sel.SelectionSet, visited)
		case *ast.FragmentSpread:
			if visited[sel.Name] || sel.Definition == nil {
				continue
			}
			visited[sel.Name] = true
			d = selectionDepth(sel.Definition.SelectionSet, visited)
			delete(visited, sel.Name)
		}
		deepest = max(deepest, d)
	}
	return deepest
}

// toPath converts an execution path of response keys and list indexes.
func toPath(segments []any) ast.Path {
	if len(segments) == 0 {
		return nil
	}
	path := make(ast.Path, 0, len(segments))
	for _, s := range segments {
		switch s := s.(type) {
		case string:
			path = append(path, ast.PathName(s))
		case int:
			path = append(path, ast.PathIndex(s))
		}
	}
	return path
}
