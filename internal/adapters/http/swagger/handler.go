// Package swagger serves the OpenAPI description of the HTTP API.
package swagger

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrDocument is returned when the embedded document cannot be decoded.
var ErrDocument = errors.New("openapi document invalid")

// OpenAPI contains the embedded OpenAPI YAML document.
//
//go:embed openapi.yaml
var OpenAPI []byte

var (
	docOnce sync.Once
	docJSON []byte
	docErr  error
)

// Router is the subset of a chi router the docs need.
type Router interface {
	Get(pattern string, h http.HandlerFunc)
}

// Register attaches the document routes.
//
//	GET /openapi.yaml -> embedded document
//	GET /openapi.json -> the same document as JSON
func Register(r Router) {
	r.Get("/openapi.yaml", HandleYAML)
	r.Get("/openapi.json", HandleJSON)
}

// HandleYAML serves the embedded document.
func HandleYAML(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	_, _ = w.Write(OpenAPI)
}

// HandleJSON serves the document converted to JSON.
func HandleJSON(w http.ResponseWriter, _ *http.Request) {
	body, err := JSON()
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write(body)
}

// JSON returns the document as JSON. The conversion runs once.
func JSON() ([]byte, error) {
	docOnce.Do(func() {
		var doc map[string]any
		if err := yaml.Unmarshal(OpenAPI, &doc); err != nil {
			docErr = fmt.Errorf("%w: %w", ErrDocument, err)
			return
		}
		docJSON, docErr = json.Marshal(doc)
		if docErr != nil {
			docErr = fmt.Errorf("%w: %w", ErrDocument, docErr)
		}
	})
	return docJSON, docErr
}

// Paths lists the documented paths in sorted order.
func Paths() ([]string, error) {
	var doc struct {
		Paths map[string]yaml.Node `yaml:"paths"`
	}
	if err := yaml.Unmarshal(OpenAPI, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDocument, err)
	}
	out := make([]string, 0, len(doc.Paths))
	for p := range doc.Paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}
