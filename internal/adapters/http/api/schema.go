package api

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema/scene.schema.json
var sceneSchemaJSON []byte

// sceneSchema is compiled once; the embedded document is static.
var sceneSchema = mustCompileSchema(sceneSchemaJSON) //nolint:gochecknoglobals // compiled embedded schema

func mustCompileSchema(doc []byte) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		panic(fmt.Errorf("%w: %v", ErrSchemaCompile, err))
	}
	return s
}

// validateScene checks a decoded scene document against the request schema.
func validateScene(doc map[string]any) error {
	result, err := sceneSchema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return err
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}
