// Copyright 2025 Edgeo SCADA
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package nodeset

import (
	"bytes"
	"go/format"
	"text/template"

	"github.com/pkg/errors"

	opcua "github.com/edgeo-scada/opcua-di"
)

// Options control code generation.
type Options struct {
	// Package is the package clause of the generated file.
	Package string
	// Generator names the tool in the "Code generated" header.
	Generator string
}

var idsTemplate = template.Must(template.New("ids").Parse(`// Code generated by {{.Generator}}. DO NOT EDIT.

package {{.Package}}
{{range .Models}}{{$uri := .NamespaceURI}}
{{- if .Methods}}
// Methods of {{$uri}}.
const (
{{- range .Methods}}
	{{.Symbol}} uint32 = {{.NodeID.Numeric}}
{{- end}}
)
{{end}}
{{- if .DataTypes}}
// DefaultBinary encodings of {{$uri}}.
const (
{{- range .DataTypes}}{{if not .Encoding.IsNull}}
	{{.Symbol}} uint32 = {{.Encoding.Numeric}}
{{- end}}{{end}}
)
{{end}}
{{- end}}
// BrowseNames maps namespace URI and numeric node id to the browse name of
// every generated method and data type encoding.
var BrowseNames = map[string]map[uint32]string{
{{- range .Models}}
	{{printf "%q" .NamespaceURI}}: {
{{- range .Methods}}
		{{.NodeID.Numeric}}: {{printf "%q" .Name}},
{{- end}}
{{- range .DataTypes}}{{if not .Encoding.IsNull}}
		{{.Encoding.Numeric}}: {{printf "%q" .Name}},
{{- end}}{{end}}
	},
{{- end}}
}
`))

// Generate renders a gofmt'ed Go file with the numeric node ids of the
// methods and data type encodings of the given models.
func Generate(models []*Model, opts Options) ([]byte, error) {
	if opts.Package == "" {
		return nil, errors.New("nodeset: package name required")
	}
	if opts.Generator == "" {
		opts.Generator = "edgeo-di gen"
	}
	if err := checkSymbols(models); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	err := idsTemplate.Execute(&buf, struct {
		Options
		Models []*Model
	}{opts, models})
	if err != nil {
		return nil, errors.Wrap(err, "nodeset: render")
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, errors.Wrap(err, "nodeset: gofmt")
	}
	return src, nil
}

// checkSymbols rejects models whose generated names collide or whose ids
// are not numeric.
func checkSymbols(models []*Model) error {
	seen := make(map[string]struct{})
	add := func(symbol string) error {
		if _, dup := seen[symbol]; dup {
			return errors.Wrapf(ErrInvalidNodeSet, "duplicate symbol %s", symbol)
		}
		seen[symbol] = struct{}{}
		return nil
	}
	for _, model := range models {
		for _, m := range model.Methods {
			if m.NodeID.Type != opcua.NodeIDTypeNumeric {
				return errors.Wrapf(ErrInvalidNodeSet, "method %s has a non-numeric node id", m.Symbol())
			}
			if err := add(m.Symbol()); err != nil {
				return err
			}
		}
		for _, dt := range model.DataTypes {
			if dt.Encoding.IsNull() {
				continue
			}
			if dt.Encoding.Type != opcua.NodeIDTypeNumeric {
				return errors.Wrapf(ErrInvalidNodeSet, "encoding of %s has a non-numeric node id", dt.Name())
			}
			if err := add(dt.Symbol()); err != nil {
				return err
			}
		}
	}
	return nil
}
