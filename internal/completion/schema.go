package completion

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jackzampolin/pagemark/internal/markdown"
)

//go:embed bounding_boxes.schema.json
var boundingBoxesSchema []byte

var compileBoundingBoxes = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("bounding_boxes.json", bytes.NewReader(boundingBoxesSchema)); err != nil {
		return nil, fmt.Errorf("failed to load bounding box schema: %w", err)
	}
	schema, err := compiler.Compile("bounding_boxes.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile bounding box schema: %w", err)
	}
	return schema, nil
})

// parseBoundingBoxes validates and decodes a raw bounding_boxes value.
// An absent or null value yields an empty slice.
func parseBoundingBoxes(raw string) ([]markdown.BoundingBox, error) {
	boxes := []markdown.BoundingBox{}
	if raw == "" || raw == "null" {
		return boxes, nil
	}

	schema, err := compileBoundingBoxes()
	if err != nil {
		return nil, err
	}

	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBoundingBoxes, err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBoundingBoxes, err)
	}

	if err := json.Unmarshal([]byte(raw), &boxes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBoundingBoxes, err)
	}
	return boxes, nil
}
