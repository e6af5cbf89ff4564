// Package openapi embeds the OpenAPI description of the annotation API.
package openapi

import _ "embed"

// AnnotationSpec is the OpenAPI document served at /openapi.yaml.
//
//go:embed annotation-api.yaml
var AnnotationSpec []byte

// Spec returns a copy of the embedded document.
func Spec() []byte {
	return append([]byte(nil), AnnotationSpec...)
}
