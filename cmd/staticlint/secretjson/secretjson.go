// Package secretjson defines an analyzer that keeps password hashes out of
// JSON output.
package secretjson

import (
	"go/ast"
	"reflect"
	"strconv"
	"strings"

	"golang.org/x/tools/go/analysis"
)

// Analyzer reports exported struct fields that hold a password hash and are
// not excluded from JSON with the `json:"-"` tag.
var Analyzer = &analysis.Analyzer{
	Name: "secretjson",
	Doc:  "requires password hash fields to carry the json:\"-\" tag",
	Run:  run,
}

var secretFieldNames = map[string]bool{
	"Hash":           true,
	"PasswordHash":   true,
	"HashedPassword": true,
}

func run(pass *analysis.Pass) (interface{}, error) {
	for _, file := range pass.Files {
		ast.Inspect(file, func(n ast.Node) bool {
			typeSpec, ok := n.(*ast.TypeSpec)
			if !ok || !typeSpec.Name.IsExported() {
				return true
			}

			structType, ok := typeSpec.Type.(*ast.StructType)
			if !ok {
				return true
			}

			for _, field := range structType.Fields.List {
				for _, name := range field.Names {
					if !secretFieldNames[name.Name] {
						continue
					}
					if !hiddenFromJSON(field.Tag) {
						pass.Reportf(name.Pos(), "field %s.%s must be tagged `json:\"-\"`", typeSpec.Name.Name, name.Name)
					}
				}
			}

			return true
		})
	}

	return nil, nil
}

func hiddenFromJSON(tag *ast.BasicLit) bool {
	if tag == nil {
		return false
	}

	value, err := strconv.Unquote(tag.Value)
	if err != nil {
		return false
	}

	jsonTag, ok := reflect.StructTag(value).Lookup("json")
	if !ok {
		return false
	}

	return strings.TrimSpace(jsonTag) == "-"
}
