// Package docload reads design documents from files.
//
// Supported formats, chosen by extension:
//   - .json: decoded as is
//   - .yaml, .yml: decoded with yaml.v3, then re-encoded as JSON
//   - .cue: evaluated with CUE, required to be concrete, exported as JSON
//
// Every format funnels through model.ParseDocument so the resulting
// document is identical to one posted as JSON.
package docload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/letwinventory/harnessgraph/internal/model"
)

// Format is a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

// Error codes.
const (
	ErrCodeRead        = "E001" // file unreadable
	ErrCodeFormat      = "E002" // unknown extension
	ErrCodeDecode      = "E003" // syntax error in the source format
	ErrCodeBuildFailed = "E004" // CUE evaluation failed or value not concrete
	ErrCodeDocument    = "E005" // decoded value is not a document
)

// LoadError describes a failure to load a document.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// FormatOf returns the format implied by path's extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	default:
		return "", &LoadError{Code: ErrCodeFormat, Message: fmt.Sprintf("unsupported document extension %q", filepath.Ext(path))}
	}
}

// LoadFile reads and decodes the document at path.
func LoadFile(path string) (*model.Document, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeRead, Message: err.Error()}
	}
	return Decode(data, format, path)
}

// Decode converts data in the given format into a document. filename is
// only used in CUE positions.
func Decode(data []byte, format Format, filename string) (*model.Document, error) {
	var (
		raw []byte
		err error
	)
	switch format {
	case FormatJSON:
		raw = data
	case FormatYAML:
		raw, err = yamlToJSON(data)
	case FormatCUE:
		raw, err = cueToJSON(data, filename)
	default:
		return nil, &LoadError{Code: ErrCodeFormat, Message: fmt.Sprintf("unsupported format %q", format)}
	}
	if err != nil {
		return nil, err
	}

	if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		return nil, &LoadError{Code: ErrCodeDocument, Message: "document must be an object"}
	}
	doc, err := model.ParseDocument(raw)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeDocument, Message: err.Error()}
	}
	return doc, nil
}

func yamlToJSON(data []byte) ([]byte, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, &LoadError{Code: ErrCodeDecode, Message: fmt.Sprintf("yaml: %v", err)}
	}
	norm, err := normalizeYAML(v)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeDecode, Message: err.Error()}
	}
	out, err := json.Marshal(norm)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeDecode, Message: err.Error()}
	}
	return out, nil
}

// normalizeYAML converts yaml.v3's map[any]any (non-string keys) into
// JSON-encodable maps with string keys.
func normalizeYAML(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			n, err := normalizeYAML(val)
			if err != nil {
				return nil, err
			}
			t[k] = n
		}
		return t, nil
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			n, err := normalizeYAML(val)
			if err != nil {
				return nil, err
			}
			out[fmt.Sprint(k)] = n
		}
		return out, nil
	case []any:
		for i, val := range t {
			n, err := normalizeYAML(val)
			if err != nil {
				return nil, err
			}
			t[i] = n
		}
		return t, nil
	default:
		return v, nil
	}
}

func cueToJSON(data []byte, filename string) ([]byte, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, cueLoadError(ErrCodeDecode, err)
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, cueLoadError(ErrCodeBuildFailed, err)
	}
	out, err := value.MarshalJSON()
	if err != nil {
		return nil, cueLoadError(ErrCodeBuildFailed, err)
	}
	return out, nil
}

// cueLoadError keeps the position of the first CUE error.
func cueLoadError(code string, err error) *LoadError {
	le := &LoadError{Code: code, Message: err.Error()}
	var cerr cueerrors.Error
	if errors.As(err, &cerr) {
		le.Pos = cerr.Position()
		le.Message = cerr.Error()
	}
	return le
}
