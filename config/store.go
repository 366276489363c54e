package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/kbukum/jobrunner/errors"
	"github.com/kbukum/jobrunner/job"
)

// Store is a read-only hierarchical document addressed by dot-delimited
// paths such as "camera-1.handler". It is loaded once and never mutated.
// Keys are matched exactly and values, task configs included, are returned
// as decoded.
//
// Typed accessors (AsList, AsString, AsInt, AsFloat, AsBool) never fail and
// return a neutral default so callers can apply their own defaulting policy.
// Get, ResolveType and ValidateResolvable surface failures.
type Store struct {
	doc      map[string]any
	filename string
	handlers *job.Registry
}

// NewStore reads the document at filename. The format is taken from the
// file extension (json, yaml, yml, toml).
func NewStore(filename string, handlers *job.Registry) (*Store, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading pipeline document %s: %w", filename, err)
	}
	format := strings.TrimPrefix(filepath.Ext(filename), ".")
	s, err := NewStoreFromReader(bytes.NewReader(data), format, handlers)
	if err != nil {
		return nil, fmt.Errorf("parsing pipeline document %s: %w", filename, err)
	}
	s.filename = filename
	return s, nil
}

// NewStoreFromReader parses a document in the given format from r.
func NewStoreFromReader(r io.Reader, format string, handlers *job.Registry) (*Store, error) {
	decoder, err := viper.NewCodecRegistry().Decoder(format)
	if err != nil {
		return nil, fmt.Errorf("format %q: %w", format, err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	doc := make(map[string]any)
	if err := decoder.Decode(data, doc); err != nil {
		return nil, err
	}
	return &Store{doc: doc, handlers: handlers}, nil
}

// NewStoreFromMap wraps an in-memory document.
func NewStoreFromMap(doc map[string]any, handlers *job.Registry) (*Store, error) {
	if doc == nil {
		doc = map[string]any{}
	}
	return &Store{doc: doc, handlers: handlers}, nil
}

// Filename returns the file the document was read from, if any.
func (s *Store) Filename() string { return s.filename }

// Handlers returns the registry used to resolve handler identifiers.
func (s *Store) Handlers() *job.Registry { return s.handlers }

// Get returns the value or subtree at path. A missing segment yields a
// KEY_NOT_FOUND error naming the segment and the full path.
func (s *Store) Get(path string) (any, error) {
	if path == "" {
		return nil, errors.KeyNotFound(path, path)
	}
	var cur any = s.doc
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, errors.KeyNotFound(path, part).WithDetail("file", s.filename)
		}
		if cur, ok = m[part]; !ok {
			return nil, errors.KeyNotFound(path, part).WithDetail("file", s.filename)
		}
	}
	return cur, nil
}

// Exists reports whether every segment of path can be navigated.
func (s *Store) Exists(path string) bool {
	_, err := s.Get(path)
	return err == nil
}

// Sub returns the subtree at path as its own Store.
func (s *Store) Sub(path string) (*Store, error) {
	val, err := s.Get(path)
	if err != nil {
		return nil, err
	}
	m, ok := val.(map[string]any)
	if !ok {
		return nil, errors.StructuralConfig("%q is not a mapping", path)
	}
	sub, err := NewStoreFromMap(m, s.handlers)
	if err != nil {
		return nil, err
	}
	sub.filename = s.filename
	return sub, nil
}

// AsList returns a list value with each element stringified. A scalar is
// wrapped in a single-element list; a mapping or a missing key yields an
// empty list.
func (s *Store) AsList(path string) []string {
	val, err := s.Get(path)
	if err != nil {
		return []string{}
	}
	switch v := val.(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, elem := range v {
			out = append(out, stringify(elem))
		}
		return out
	case map[string]any, nil:
		return []string{}
	default:
		return []string{stringify(v)}
	}
}

// AsString returns the stringified value, or "" when the key is missing.
func (s *Store) AsString(path string) string {
	val, err := s.Get(path)
	if err != nil {
		return ""
	}
	return stringify(val)
}

// AsInt returns the value as an integer. Whole numbers and base-10 integer
// strings convert; anything else yields 0.
func (s *Store) AsInt(path string) int {
	val, err := s.Get(path)
	if err != nil {
		return 0
	}
	switch v := val.(type) {
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return n
	case float64:
		if v != float64(int(v)) {
			return 0
		}
		return int(v)
	case float32:
		if v != float32(int(v)) {
			return 0
		}
		return int(v)
	}
	n, err := cast.ToIntE(val)
	if err != nil {
		return 0
	}
	return n
}

// AsFloat returns the value as a float, or 0.0 when it cannot be parsed.
func (s *Store) AsFloat(path string) float64 {
	val, err := s.Get(path)
	if err != nil {
		return 0.0
	}
	if str, ok := val.(string); ok {
		val = strings.TrimSpace(str)
	}
	f, err := cast.ToFloat64E(val)
	if err != nil {
		return 0.0
	}
	return f
}

// AsBool returns false for a missing key and for values whose trimmed,
// lower-cased string form is "0" or "false". Any other present value is true.
func (s *Store) AsBool(path string) bool {
	val, err := s.Get(path)
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(stringify(val))) {
	case "0", "false":
		return false
	default:
		return true
	}
}

// ResolveType resolves the handler identifier stored at path into a job
// factory using the store's handler registry.
func (s *Store) ResolveType(path string) (job.Factory, error) {
	val, err := s.Get(path)
	if err != nil {
		return nil, err
	}
	id, ok := val.(string)
	if !ok {
		return nil, errors.Resolution(stringify(val), fmt.Sprintf("value at %q is not a string", path))
	}
	if s.handlers == nil {
		return nil, errors.Resolution(id, "no handler registry configured")
	}
	return s.handlers.Resolve(id)
}

// ValidateResolvable checks that the handler identifier at path resolves.
// Any failure is reported as a structural configuration error.
func (s *Store) ValidateResolvable(path string) error {
	if _, err := s.ResolveType(path); err != nil {
		return errors.StructuralConfig("handler at %q cannot be resolved", path).
			WithDetail("path", path).
			WithCause(err)
	}
	return nil
}

func stringify(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case map[string]any, []any:
		return fmt.Sprint(v)
	}
	str, err := cast.ToStringE(val)
	if err != nil {
		return fmt.Sprint(val)
	}
	return str
}
