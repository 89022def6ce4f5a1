package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/dshills/docsync/internal/logger"
	"github.com/dshills/docsync/pkg/types"
)

// DefaultInclude matches markdown files at any depth
const DefaultInclude = "**/*.md"

var (
	ErrSourceNotFound = errors.New("source directory does not exist")
	ErrNotDirectory   = errors.New("source path is not a directory")
	ErrInvalidUTF8    = errors.New("content is not valid UTF-8")
	ErrBadPattern     = errors.New("invalid glob pattern")
)

// Config controls which files are scanned and how they are normalized
type Config struct {
	Include          []string // doublestar patterns relative to the root (default: **/*.md)
	Exclude          []string // doublestar patterns removed from the include set
	MaxContentLength int      // Maximum characters kept per document (default: 10000)
}

// Scanner enumerates documents below a root directory
type Scanner struct {
	root   string
	fsys   fs.FS
	config Config
}

// New creates a Scanner for root after checking that it is an existing directory
func New(root string, config *Config) (*Scanner, error) {
	if err := ValidateRoot(root); err != nil {
		return nil, err
	}
	return NewFS(root, os.DirFS(root), config)
}

// NewFS creates a Scanner over an arbitrary filesystem; root is used for messages only
func NewFS(root string, fsys fs.FS, config *Config) (*Scanner, error) {
	cfg := Config{}
	if config != nil {
		cfg = *config
	}
	if len(cfg.Include) == 0 {
		cfg.Include = []string{DefaultInclude}
	}
	if cfg.MaxContentLength == 0 {
		cfg.MaxContentLength = DefaultMaxContentLength
	}

	for _, pattern := range append(append([]string{}, cfg.Include...), cfg.Exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("%w: %q", ErrBadPattern, pattern)
		}
	}

	return &Scanner{root: root, fsys: fsys, config: cfg}, nil
}

// ValidateRoot checks that root exists and is a directory
func ValidateRoot(root string) error {
	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrSourceNotFound, root)
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}
	return nil
}

// Root returns the directory being scanned
func (s *Scanner) Root() string {
	return s.root
}

// Identities returns the sorted, de-duplicated identities matched by the
// include patterns and not matched by any exclude pattern
func (s *Scanner) Identities() ([]string, error) {
	seen := make(map[string]struct{})

	for _, pattern := range s.config.Include {
		matches, err := doublestar.Glob(s.fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, match := range matches {
			if s.excluded(match) {
				continue
			}
			seen[path.Clean(match)] = struct{}{}
		}
	}

	identities := make([]string, 0, len(seen))
	for identity := range seen {
		identities = append(identities, identity)
	}
	sort.Strings(identities)
	return identities, nil
}

func (s *Scanner) excluded(identity string) bool {
	for _, pattern := range s.config.Exclude {
		if ok, _ := doublestar.Match(pattern, identity); ok {
			return true
		}
	}
	return false
}

// Scan reads and normalizes every matched document.
// Truncated documents are logged and flagged but do not stop the scan.
// Zero-length files carry nothing to embed and are skipped with a warning.
func (s *Scanner) Scan(ctx context.Context) ([]types.Document, error) {
	log := logger.FromContext(ctx)

	identities, err := s.Identities()
	if err != nil {
		return nil, err
	}

	docs := make([]types.Document, 0, len(identities))
	for _, identity := range identities {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		doc, err := s.read(identity)
		if err != nil {
			return nil, err
		}
		if doc.Content == "" {
			log.Warn("Skipping empty document", "identity", identity)
			continue
		}
		if doc.Truncated {
			log.Warn("Document exceeds maximum length, truncating",
				"identity", identity,
				"length", doc.OriginalLength,
				"max", s.config.MaxContentLength)
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

func (s *Scanner) read(identity string) (types.Document, error) {
	raw, err := fs.ReadFile(s.fsys, identity)
	if err != nil {
		return types.Document{}, fmt.Errorf("read %s: %w", identity, err)
	}
	if !utf8.Valid(raw) {
		return types.Document{}, fmt.Errorf("%s: %w", identity, ErrInvalidUTF8)
	}

	content, truncated, length := Normalize(string(raw), s.config.MaxContentLength)
	return types.NewDocument(identity, content, truncated, length), nil
}
