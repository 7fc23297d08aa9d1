package loader

import (
	"io"
)

// loaderBackend defines the generic interface for decoding definition documents from files or streams.
// Concrete implementations (e.g., yamlLoaderBackend) handle format-specific details. Backends only decode;
// reference resolution and validation happen once the Document is turned into a Definition.
type loaderBackend interface {
	// Load decodes a Document from the given file path.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - *Document: the decoded document
	//   - error: error if reading or decoding fails
	Load(path string) (*Document, error)

	// LoadReader decodes a Document from a reader stream.
	//
	// Parameters:
	//   - r: the reader providing document data
	//
	// Returns:
	//   - *Document: the decoded document
	//   - error: error if decoding fails
	LoadReader(r io.Reader) (*Document, error)
}
