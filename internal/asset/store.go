package asset

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/HugoSmits86/nativewebp"
	_ "golang.org/x/image/webp"

	"github.com/tracelay/tracelay/backend-go/internal/geom"
	"github.com/tracelay/tracelay/backend-go/internal/typeid"
)

// URLPrefix is the path stored images are served under. Source refs handed
// to the engine are URLs of this form.
const URLPrefix = "/assets/"

const fileExt = ".webp"

// ErrNotFound is returned when a ref does not name a stored image.
var ErrNotFound = errors.New("asset not found")

// Store keeps uploaded images on disk as lossless WebP and caches their
// natural sizes. It resolves source refs for the engine.
type Store struct {
	dir string

	mu     sync.RWMutex
	sizes  map[string]geom.Size
	images map[string]image.Image
}

// NewStore creates a store rooted at dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create asset dir %s: %w", dir, err)
	}
	return &Store{
		dir:    dir,
		sizes:  make(map[string]geom.Size),
		images: make(map[string]image.Image),
	}, nil
}

// Dir returns the directory files are stored in.
func (s *Store) Dir() string {
	return s.dir
}

// Save encodes img and returns the new asset id and its source ref.
func (s *Store) Save(img image.Image) (id, ref string, err error) {
	id = typeid.NewAssetID()
	filename := id + fileExt
	path := filepath.Join(s.dir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", "", fmt.Errorf("create asset file: %w", err)
	}
	defer f.Close()

	if err := nativewebp.Encode(f, img, nil); err != nil {
		os.Remove(path)
		return "", "", fmt.Errorf("encode webp: %w", err)
	}

	ref = URLPrefix + filename
	b := img.Bounds()

	s.mu.Lock()
	s.sizes[ref] = geom.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}
	s.images[ref] = img
	s.mu.Unlock()

	return id, ref, nil
}

// Resolve returns the natural size of the image behind ref.
func (s *Store) Resolve(ref string) (geom.Size, error) {
	s.mu.RLock()
	size, ok := s.sizes[ref]
	s.mu.RUnlock()
	if ok {
		return size, nil
	}

	path, err := s.path(ref)
	if err != nil {
		return geom.Size{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return geom.Size{}, ErrNotFound
		}
		return geom.Size{}, fmt.Errorf("open %s: %w", ref, err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return geom.Size{}, fmt.Errorf("decode config %s: %w", ref, err)
	}
	size = geom.Size{Width: float64(cfg.Width), Height: float64(cfg.Height)}

	s.mu.Lock()
	s.sizes[ref] = size
	s.mu.Unlock()
	return size, nil
}

// Open returns the decoded pixels behind ref.
func (s *Store) Open(ref string) (image.Image, error) {
	s.mu.RLock()
	img, ok := s.images[ref]
	s.mu.RUnlock()
	if ok {
		return img, nil
	}

	path, err := s.path(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open %s: %w", ref, err)
	}
	defer f.Close()

	img, _, err = image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", ref, err)
	}

	s.mu.Lock()
	s.images[ref] = img
	s.mu.Unlock()
	return img, nil
}

// Delete removes a stored image by asset id.
func (s *Store) Delete(assetID string) error {
	ref := URLPrefix + assetID + fileExt
	path, err := s.path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("remove %s: %w", assetID, err)
	}

	s.mu.Lock()
	delete(s.sizes, ref)
	delete(s.images, ref)
	s.mu.Unlock()
	return nil
}

// path maps a ref onto a file in the store, refusing anything that is not an asset id.
func (s *Store) path(ref string) (string, error) {
	name, ok := strings.CutPrefix(ref, URLPrefix)
	if !ok {
		return "", ErrNotFound
	}
	id, ok := strings.CutSuffix(name, fileExt)
	if !ok || typeid.Validate(id, typeid.PrefixAsset) != nil {
		return "", ErrNotFound
	}
	return filepath.Join(s.dir, name), nil
}
