package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3gen"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/hamed0406/tlscheck/internal/domain"
)

type encoder interface {
	Encode(v any) error
}

// outcomeSchema describes domain.Outcome as its wire form: either a
// CheckResult or a CheckError, each with a status discriminator.
func outcomeSchema() (*openapi3.SchemaRef, error) {
	ok, err := openapi3gen.NewSchemaRefForValue(domain.CheckResult{}, openapi3.Schemas{})
	if err != nil {
		return nil, fmt.Errorf("check result schema: %w", err)
	}
	failed, err := openapi3gen.NewSchemaRefForValue(domain.CheckError{}, openapi3.Schemas{})
	if err != nil {
		return nil, fmt.Errorf("check error schema: %w", err)
	}

	ok.Value.Properties["status"] = openapi3.NewSchemaRef("", openapi3.NewStringSchema().WithEnum(domain.StatusOK))
	statusErr := openapi3.NewStringSchema().WithEnum(domain.StatusError)
	failed.Value.Properties["status"] = openapi3.NewSchemaRef("", statusErr)

	return openapi3.NewSchemaRef("", openapi3.NewOneOfSchema(ok.Value, failed.Value)), nil
}

// validationSchema is written by hand: fieldError.Value is untyped, which
// openapi3gen cannot describe.
func validationSchema() *openapi3.SchemaRef {
	item := openapi3.NewObjectSchema().
		WithProperty("type", openapi3.NewStringSchema()).
		WithProperty("value", openapi3.NewSchema()).
		WithProperty("msg", openapi3.NewStringSchema()).
		WithProperty("path", openapi3.NewStringSchema()).
		WithProperty("location", openapi3.NewStringSchema())
	body := openapi3.NewObjectSchema().WithProperty("errors", openapi3.NewArraySchema().WithItems(item))
	return openapi3.NewSchemaRef("", body)
}

func jsonResponse(desc string, schema *openapi3.SchemaRef) *openapi3.ResponseRef {
	return &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &desc,
			Content:     openapi3.NewContentWithSchemaRef(schema, []string{"application/json"}),
		},
	}
}

// Openapi documents the public check endpoints.
func Openapi() (openapi3.T, error) {
	outcome, err := outcomeSchema()
	if err != nil {
		return openapi3.T{}, err
	}
	batch := openapi3.NewSchemaRef("", openapi3.NewArraySchema().WithItems(outcome.Value))
	validation := validationSchema()

	domains := openapi3.NewObjectSchema().
		WithProperty("domains", openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema()))
	domains.Required = []string{"domains"}

	doc := openapi3.T{
		OpenAPI: "3.0.0",
		Info: &openapi3.Info{
			Title:       "tlscheck API",
			Description: "Inspects TLS certificates and handshakes of remote hosts",
			Version:     "1.0.0",
		},
		Paths:      make(openapi3.Paths),
		Components: &openapi3.Components{Schemas: openapi3.Schemas{"Outcome": outcome}},
	}

	doc.Paths["/check"] = &openapi3.PathItem{
		Get: &openapi3.Operation{
			Description: "Checks a single host",
			Tags:        []string{"Check"},
			Parameters: openapi3.Parameters{
				{Value: openapi3.NewQueryParameter("domain").WithRequired(true).WithSchema(openapi3.NewStringSchema())},
			},
			Responses: openapi3.Responses{
				"200": jsonResponse("Check outcome", outcome),
				"400": jsonResponse("Invalid domain", validation),
			},
		},
	}
	doc.Paths["/check-multiple"] = &openapi3.PathItem{
		Post: &openapi3.Operation{
			Description: "Checks many hosts concurrently; results keep request order",
			Tags:        []string{"Check"},
			RequestBody: &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().WithRequired(true).WithJSONSchema(domains)},
			Responses: openapi3.Responses{
				"200": jsonResponse("One outcome per domain", batch),
				"400": jsonResponse("Invalid request", validation),
			},
		},
	}
	return doc, nil
}

// handleOpenapi serves YAML unless the client asks for JSON.
func (s *Server) handleOpenapi(w http.ResponseWriter, r *http.Request) {
	doc, err := Openapi()
	if err != nil {
		s.Logger.Error("openapi_build_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	var marshaler encoder
	switch r.Header.Get("Accept") {
	case "application/json":
		marshaler = json.NewEncoder(w)
		w.Header().Add("Content-Type", "application/json")
	default:
		marshaler = yaml.NewEncoder(w)
		w.Header().Add("Content-Type", "text/yaml")
	}
	if err := marshaler.Encode(doc); err != nil {
		s.Logger.Error("openapi_encode_error", zap.Error(err))
	}
}
