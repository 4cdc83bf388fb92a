package testsupport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

// Fixture decodes testdata/name into a T. The format follows the extension:
// .yaml, .yml or .json. Fields the file names but T lacks fail the test, so a
// renamed struct field cannot silently empty a scenario table.
func Fixture[T any](t testing.TB, name string) T {
	t.Helper()

	path := filepath.Join("testdata", name)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read fixture %s: %v", path, err)
	}

	var v T
	if err := decodeFixture(name, data, &v); err != nil {
		t.Fatalf("failed to decode fixture %s: %v", path, err)
	}
	return v
}

func decodeFixture(name string, data []byte, dest any) error {
	switch ext := filepath.Ext(name); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		return dec.Decode(dest)
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(dest)
	default:
		return fmt.Errorf("unsupported fixture format %q", ext)
	}
}
