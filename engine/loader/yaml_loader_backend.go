package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Carmen-Shannon/oxy-blend/common"
	"gopkg.in/yaml.v3"
)

// currentVersion is the only definition schema version understood.
const currentVersion = 1

// yamlLoaderBackend decodes YAML definition documents. Unknown keys are rejected so typos in authored
// files fail loudly instead of silently falling back to defaults.
type yamlLoaderBackend struct{}

var _ loaderBackend = &yamlLoaderBackend{}

func newYAMLLoaderBackend() loaderBackend {
	return &yamlLoaderBackend{}
}

func (b *yamlLoaderBackend) Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}
	return b.LoadReader(bytes.NewReader(data))
}

func (b *yamlLoaderBackend) LoadReader(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, common.NewConfigurationError("loader", "empty definition")
		}
		return nil, fmt.Errorf("parse definition: %w", err)
	}
	if doc.Version != currentVersion {
		return nil, common.NewConfigurationError("loader", "unsupported definition version %d (want %d)", doc.Version, currentVersion)
	}
	return &doc, nil
}

// Parse decodes and validates a YAML definition held in memory.
//
// Parameters:
//   - data: the YAML document
//
// Returns:
//   - *Definition: the validated definition
//   - error: error if decoding or validation fails
func Parse(data []byte) (*Definition, error) {
	doc, err := newYAMLLoaderBackend().LoadReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return newDefinition("", doc)
}
