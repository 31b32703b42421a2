package main

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// structInfo stores parsed information about a Go struct.
type structInfo struct {
	name   string
	pkg    string
	fields []fieldInfo
}

type fieldInfo struct {
	jsonName string
	goType   string
	optional bool
}

// typeMapping maps Go type strings to TypeScript type strings.
var typeMapping = map[string]string{
	"string":                 "string",
	"int":                    "number",
	"int32":                  "number",
	"int64":                  "number",
	"uint32":                 "number",
	"float32":                "number",
	"float64":                "number",
	"bool":                   "boolean",
	"any":                    "unknown",
	"interface{}":            "unknown",
	"[]byte":                 "string", // base64
	"time.Time":              "string",
	"time.Duration":          "number",
	"json.RawMessage":        "unknown",
	"map[string]string":      "Record<string, string>",
	"map[string]interface{}": "Record<string, unknown>",
	"map[string]any":         "Record<string, unknown>",
}

// model is everything collected from the parsed packages.
type model struct {
	structs     map[string]*structInfo
	order       []string
	aliases     map[string]string   // named type -> underlying primitive
	constValues map[string][]string // named type -> declared string values
	eventIDs    map[string]string   // struct -> id returned by GetId
	intents     []string
}

func newModel() *model {
	return &model{
		structs:     map[string]*structInfo{},
		aliases:     map[string]string{},
		constValues: map[string][]string{},
		eventIDs:    map[string]string{},
	}
}

// generate parses every package below dirs (relative to root) and renders the TypeScript file.
func generate(root string, dirs []string) ([]byte, error) {
	m := newModel()
	for _, dir := range dirs {
		pkgDirs, err := discoverGoDirs(filepath.Join(root, strings.TrimSpace(dir)))
		if err != nil {
			return nil, fmt.Errorf("discover %s: %w", dir, err)
		}
		for _, d := range pkgDirs {
			rel, _ := filepath.Rel(root, d)
			if err := m.parseDir(d, filepath.ToSlash(rel)); err != nil {
				return nil, fmt.Errorf("parse %s: %w", rel, err)
			}
		}
	}
	return m.render(), nil
}

// discoverGoDirs returns dir and every directory below it that holds non-test Go files.
func discoverGoDirs(dir string) ([]string, error) {
	seen := map[string]bool{}
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(info.Name(), ".go") && !strings.HasSuffix(info.Name(), "_test.go") {
			seen[filepath.Dir(path)] = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	dirs := make([]string, 0, len(seen))
	for d := range seen {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs, nil
}

func (m *model) parseDir(dir, rel string) error {
	fset := token.NewFileSet()
	pkgs, err := parser.ParseDir(fset, dir, func(fi os.FileInfo) bool {
		return !strings.HasSuffix(fi.Name(), "_test.go")
	}, 0)
	if err != nil {
		return err
	}

	var files []*ast.File
	for _, pkg := range pkgs {
		for _, name := range sortedKeys(pkg.Files) {
			files = append(files, pkg.Files[name])
		}
	}
	for _, file := range files {
		for _, decl := range file.Decls {
			switch d := decl.(type) {
			case *ast.GenDecl:
				m.parseGenDecl(d, rel)
			case *ast.FuncDecl:
				m.parseGetID(d)
			}
		}
	}
	return nil
}

func (m *model) parseGenDecl(decl *ast.GenDecl, rel string) {
	switch decl.Tok {
	case token.TYPE:
		for _, spec := range decl.Specs {
			ts := spec.(*ast.TypeSpec)
			if ident, ok := ts.Type.(*ast.Ident); ok {
				m.aliases[ts.Name.Name] = ident.Name
				continue
			}
			st, ok := ts.Type.(*ast.StructType)
			if !ok {
				continue
			}
			si := parseStruct(ts.Name.Name, rel, st)
			if len(si.fields) == 0 {
				continue
			}
			if prev, exists := m.structs[si.name]; exists {
				fmt.Fprintf(os.Stderr, "warning: %s declared in %s and %s, keeping the first\n", si.name, prev.pkg, rel)
				continue
			}
			m.structs[si.name] = si
			m.order = append(m.order, si.name)
		}
	case token.CONST:
		for _, spec := range decl.Specs {
			vs := spec.(*ast.ValueSpec)
			for i, val := range vs.Values {
				lit, ok := val.(*ast.BasicLit)
				if !ok || lit.Kind != token.STRING {
					continue
				}
				s, err := strconv.Unquote(lit.Value)
				if err != nil {
					continue
				}
				if vs.Type != nil {
					typeName := typeExprToString(vs.Type)
					m.constValues[typeName] = append(m.constValues[typeName], s)
					continue
				}
				if i < len(vs.Names) && strings.HasPrefix(vs.Names[i].Name, "Intent") {
					m.intents = append(m.intents, s)
				}
			}
		}
	}
}

// parseGetID records `func (e *T) GetId() string { return "id" }`.
func (m *model) parseGetID(fn *ast.FuncDecl) {
	if fn.Name.Name != "GetId" || fn.Recv == nil || len(fn.Recv.List) != 1 || fn.Body == nil || len(fn.Body.List) != 1 {
		return
	}
	recv := strings.TrimPrefix(typeExprToString(fn.Recv.List[0].Type), "*")
	ret, ok := fn.Body.List[0].(*ast.ReturnStmt)
	if !ok || len(ret.Results) != 1 {
		return
	}
	lit, ok := ret.Results[0].(*ast.BasicLit)
	if !ok || lit.Kind != token.STRING {
		return
	}
	if id, err := strconv.Unquote(lit.Value); err == nil {
		m.eventIDs[recv] = id
	}
}

func parseStruct(name, rel string, st *ast.StructType) *structInfo {
	si := &structInfo{name: name, pkg: rel}
	for _, field := range st.Fields.List {
		if field.Tag == nil || len(field.Names) == 0 {
			continue
		}
		tag := reflect.StructTag(strings.Trim(field.Tag.Value, "`"))
		parts := strings.Split(tag.Get("json"), ",")
		if parts[0] == "" || parts[0] == "-" {
			continue
		}
		_, isPointer := field.Type.(*ast.StarExpr)
		si.fields = append(si.fields, fieldInfo{
			jsonName: parts[0],
			goType:   typeExprToString(field.Type),
			optional: isPointer || containsString(parts[1:], "omitempty"),
		})
	}
	return si
}

// typeExprToString converts an AST type expression to a string representation.
func typeExprToString(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return "*" + typeExprToString(t.X)
	case *ast.ArrayType:
		return "[]" + typeExprToString(t.Elt)
	case *ast.MapType:
		return "map[" + typeExprToString(t.Key) + "]" + typeExprToString(t.Value)
	case *ast.SelectorExpr:
		return typeExprToString(t.X) + "." + t.Sel.Name
	case *ast.InterfaceType:
		return "interface{}"
	default:
		return "unknown"
	}
}

// resolveType converts a Go type string to a TypeScript type string.
func (m *model) resolveType(goType string) string {
	clean := strings.TrimPrefix(goType, "*")
	if ts, ok := typeMapping[clean]; ok {
		return ts
	}
	if strings.HasPrefix(clean, "[]") {
		inner := m.resolveType(clean[2:])
		if strings.Contains(inner, "|") {
			inner = "(" + inner + ")"
		}
		return inner + "[]"
	}
	if strings.HasPrefix(clean, "map[") {
		return "Record<string, unknown>"
	}
	short := clean
	if idx := strings.LastIndex(clean, "."); idx >= 0 {
		short = clean[idx+1:]
	}
	if _, ok := m.structs[short]; ok {
		return short
	}
	if vals, ok := m.constValues[short]; ok && len(vals) > 0 {
		return unionLiteral(vals)
	}
	if underlying, ok := m.aliases[short]; ok {
		return m.resolveType(underlying)
	}
	return "unknown"
}

func (m *model) render() []byte {
	var buf bytes.Buffer
	buf.WriteString("// Code generated by cmd/typegen; DO NOT EDIT.\n")
	buf.WriteString("//\n")
	buf.WriteString("// Regenerate: go run ./cmd/typegen -out ui/src/types/generated.ts\n\n")

	for _, name := range m.order {
		si := m.structs[name]
		if id, ok := m.eventIDs[name]; ok {
			fmt.Fprintf(&buf, "/** Payload of '%s'. Generated from %s.%s */\n", id, si.pkg, name)
		} else {
			fmt.Fprintf(&buf, "/** Generated from %s.%s */\n", si.pkg, name)
		}
		fmt.Fprintf(&buf, "export interface %s {\n", name)
		for _, f := range si.fields {
			opt := ""
			if f.optional {
				opt = "?"
			}
			fmt.Fprintf(&buf, "  %s%s: %s\n", f.jsonName, opt, m.resolveType(f.goType))
		}
		buf.WriteString("}\n\n")
	}

	ids := make([]string, 0, len(m.eventIDs))
	byID := map[string]string{}
	for name, id := range m.eventIDs {
		ids = append(ids, id)
		byID[id] = name
	}
	sort.Strings(ids)
	if len(ids) > 0 {
		fmt.Fprintf(&buf, "export type EventId = %s\n\n", unionLiteral(ids))
		buf.WriteString("export interface EventPayloads {\n")
		for _, id := range ids {
			payload := byID[id]
			if _, ok := m.structs[payload]; !ok {
				payload = "Record<string, never>"
			}
			fmt.Fprintf(&buf, "  '%s': %s\n", id, payload)
		}
		buf.WriteString("}\n\n")
	}
	if len(m.intents) > 0 {
		fmt.Fprintf(&buf, "export type IntentId = %s\n", unionLiteral(m.intents))
	}
	return buf.Bytes()
}

// unionLiteral returns a TS inline union type, e.g. "'user' | 'assistant'".
func unionLiteral(vals []string) string {
	quoted := make([]string, len(vals))
	for i, v := range vals {
		quoted[i] = "'" + v + "'"
	}
	return strings.Join(quoted, " | ")
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
