package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"

	"bff-gateway/internal/model"
)

// inputs holds the extracted field values of one request. Path and query
// values are strings; body values keep their decoded JSON type.
type inputs map[string]any

// extractInputs collects ep's required fields from req. It returns the name of
// the first missing field, or an error when the body is not valid JSON. The
// body is decoded before any field is checked.
func extractInputs(v *validator.Validate, ep *Endpoint, req *model.Request) (inputs, string, error) {
	var body map[string]any
	if ep.hasBodyFields() {
		var err error
		body, err = decodeBody(req.Body)
		if err != nil {
			return nil, "", err
		}
	}

	in := make(inputs, len(ep.Fields))
	for _, f := range ep.Fields {
		var value any
		switch f.Source {
		case FromPath:
			value = req.PathParams[f.Name]
		case FromQuery:
			value = req.Query.Get(f.Name)
		case FromBody:
			value = body[f.Name]
		}
		if !present(v, value) {
			return nil, f.Name, nil
		}
		in[f.Name] = value
	}
	return in, "", nil
}

// present applies the validator's required rule: nil, "" and false are
// missing, while a numeric 0 decoded as json.Number is not.
func present(v *validator.Validate, value any) bool {
	if value == nil {
		return false
	}
	return v.Var(value, "required") == nil
}

// decodeBody parses a JSON request body. An empty body decodes as no fields
// and so does any JSON value that is not an object.
func decodeBody(raw []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("parse request body: %w", err)
	}
	if err := dec.Decode(new(any)); !errors.Is(err, io.EOF) {
		return nil, errors.New("parse request body: unexpected data after JSON value")
	}

	obj, _ := v.(map[string]any)
	return obj, nil
}
