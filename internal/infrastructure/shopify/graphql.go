package shopify

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// OperationName parses a GraphQL document and returns the name of its single
// operation, or "anonymous" when unnamed. Malformed documents are rejected
// before any request is sent.
func OperationName(query string) (string, error) {
	doc, err := parser.ParseQuery(&ast.Source{Name: "admin", Input: query})
	if err != nil {
		return "", fmt.Errorf("invalid graphql document: %w", err)
	}
	if len(doc.Operations) != 1 {
		return "", fmt.Errorf("invalid graphql document: expected 1 operation, got %d", len(doc.Operations))
	}
	name := doc.Operations[0].Name
	if name == "" {
		name = "anonymous"
	}
	return name, nil
}
