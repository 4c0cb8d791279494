package extract

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
)

// goWrappers are call names whose string arguments are already localized.
var goWrappers = map[string]bool{
	"T":            true,
	"N":            true,
	"Get":          true,
	"GetN":         true,
	"GetC":         true,
	"Localize":     true,
	"MustLocalize": true,
}

// detectGo parses src and returns string literals outside imports, struct
// tags and calls to localization wrappers. Literals in constant positions
// (const declarations, case clauses, array lengths) are skipped since a call
// is not allowed or changes meaning there.
func detectGo(path string, src []byte) ([]Candidate, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, path, src, parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	skip := make(map[*ast.BasicLit]bool)
	var out []Candidate

	ast.Inspect(f, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.ImportSpec:
			return false
		case *ast.GenDecl:
			if n.Tok == token.CONST {
				return false
			}
		case *ast.CaseClause:
			for _, e := range n.List {
				skipLiterals(e, skip)
			}
		case *ast.ArrayType:
			if n.Len != nil {
				skipLiterals(n.Len, skip)
			}
		case *ast.Field:
			if n.Tag != nil {
				skip[n.Tag] = true
			}
		case *ast.CallExpr:
			if goWrappers[goCallName(n)] {
				for _, arg := range n.Args {
					if lit, ok := arg.(*ast.BasicLit); ok {
						skip[lit] = true
					}
				}
			}
		case *ast.BasicLit:
			if n.Kind != token.STRING || skip[n] {
				return true
			}
			text, err := strconv.Unquote(n.Value)
			if err != nil || !hasLetter(text) {
				return true
			}
			start := fset.Position(n.Pos()).Offset
			c, err := newCandidate(src, start, start+len(n.Value), text)
			if err != nil {
				return true
			}
			out = append(out, c)
		}
		return true
	})

	return out, nil
}

func skipLiterals(n ast.Node, skip map[*ast.BasicLit]bool) {
	ast.Inspect(n, func(n ast.Node) bool {
		if lit, ok := n.(*ast.BasicLit); ok {
			skip[lit] = true
		}
		return true
	})
}

// goCallName returns the called function's name: T for T(...) and for
// i18n.T(...).
func goCallName(call *ast.CallExpr) string {
	switch fn := call.Fun.(type) {
	case *ast.Ident:
		return fn.Name
	case *ast.SelectorExpr:
		return fn.Sel.Name
	}
	return ""
}
