package router

import (
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

// LoadOpenAPI loads and validates the API description served under /docs.
func LoadOpenAPI(path string) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid openapi document %s: %w", path, err)
	}
	return doc, nil
}

// Documented reports whether doc describes method on an /api path written
// in fiber syntax (":id" instead of "{id}").
func Documented(doc *openapi3.T, method, fiberPath string) bool {
	item := doc.Paths.Value(toOpenAPIPath(fiberPath))
	return item != nil && item.GetOperation(method) != nil
}

func toOpenAPIPath(fiberPath string) string {
	out := make([]byte, 0, len(fiberPath)+2)
	for i := 0; i < len(fiberPath); i++ {
		if fiberPath[i] != ':' {
			out = append(out, fiberPath[i])
			continue
		}
		j := i + 1
		for j < len(fiberPath) && fiberPath[j] != '/' {
			j++
		}
		out = append(out, '{')
		out = append(out, fiberPath[i+1:j]...)
		out = append(out, '}')
		i = j - 1
	}
	return string(out)
}
