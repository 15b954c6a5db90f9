package runtime

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
)

// declaredNames returns the top-level identifiers a fragment binds. Fragments
// are wrapped the way the interpreter wraps incremental input: first as a file
// body, then as statements of an implicit main.
func declaredNames(src string) []string {
	fset := token.NewFileSet()
	if strings.HasPrefix(strings.TrimSpace(src), "package") {
		if file, err := parser.ParseFile(fset, "", src, 0); err == nil {
			return fileNames(file)
		}
		return nil
	}
	if file, err := parser.ParseFile(fset, "", "package main\n"+src, 0); err == nil {
		return fileNames(file)
	}
	file, err := parser.ParseFile(fset, "", "package main\nfunc main() {\n"+src+"\n}", 0)
	if err != nil || len(file.Decls) == 0 {
		return nil
	}
	fn, ok := file.Decls[0].(*ast.FuncDecl)
	if !ok || fn.Body == nil {
		return nil
	}
	var names []string
	for _, stmt := range fn.Body.List {
		switch s := stmt.(type) {
		case *ast.AssignStmt:
			if s.Tok != token.DEFINE {
				continue
			}
			for _, lhs := range s.Lhs {
				if id, ok := lhs.(*ast.Ident); ok {
					names = appendName(names, id)
				}
			}
		case *ast.DeclStmt:
			if gen, ok := s.Decl.(*ast.GenDecl); ok {
				names = genDeclNames(names, gen)
			}
		}
	}
	return names
}

func fileNames(file *ast.File) []string {
	var names []string
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			// Methods hang off their receiver type.
			if d.Recv == nil {
				names = appendName(names, d.Name)
			}
		case *ast.GenDecl:
			names = genDeclNames(names, d)
		}
	}
	return names
}

func genDeclNames(names []string, gen *ast.GenDecl) []string {
	for _, spec := range gen.Specs {
		switch s := spec.(type) {
		case *ast.ValueSpec:
			for _, id := range s.Names {
				names = appendName(names, id)
			}
		case *ast.TypeSpec:
			names = appendName(names, s.Name)
		}
	}
	return names
}

func appendName(names []string, id *ast.Ident) []string {
	if id == nil || id.Name == "_" {
		return names
	}
	return append(names, id.Name)
}
