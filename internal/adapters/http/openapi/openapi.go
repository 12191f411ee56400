// Package openapi embeds the HTTP API description and validates incoming
// requests against it.
package openapi

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
)

//go:embed openapi.yaml
var document []byte

// Document returns the raw YAML served at /openapi.yaml.
func Document() []byte {
	return document
}

// Validator checks requests against the embedded document. Requests for
// paths the document does not describe are not its concern.
type Validator struct {
	router routers.Router
}

func NewValidator(ctx context.Context) (*Validator, error) {
	doc, err := openapi3.NewLoader().LoadFromData(document)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}
	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build openapi router: %w", err)
	}
	return &Validator{router: router}, nil
}

// Validate returns (false, nil) when the request is outside the document,
// (true, nil) when it conforms and (true, err) when it does not.
// Multipart bodies are left to the handler.
func (v *Validator) Validate(r *http.Request) (bool, error) {
	route, pathParams, err := v.router.FindRoute(r)
	if err != nil {
		if errors.Is(err, routers.ErrPathNotFound) || errors.Is(err, routers.ErrMethodNotAllowed) {
			return false, nil
		}
		return false, err
	}

	input := &openapi3filter.RequestValidationInput{
		Request:    r,
		PathParams: pathParams,
		Route:      route,
		Options: &openapi3filter.Options{
			ExcludeRequestBody: route.Operation.RequestBody != nil &&
				route.Operation.RequestBody.Value.Content.Get("multipart/form-data") != nil,
			AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		},
	}
	return true, openapi3filter.ValidateRequest(r.Context(), input)
}
