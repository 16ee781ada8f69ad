package frame

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// DirSource replays the images in a directory as a looping video feed.
// Files are played in lexical order.
type DirSource struct {
	mu     sync.Mutex
	frames []image.Image
	next   int
	width  int
	height int
}

var imageExts = []string{".jpg", ".jpeg", ".png"}

// OpenDir decodes every JPEG and PNG file in dir.
func OpenDir(dir string) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading frame directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if slices.Contains(imageExts, strings.ToLower(filepath.Ext(e.Name()))) {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)

	src := &DirSource{}
	for _, name := range names {
		img, err := decodeFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		src.frames = append(src.frames, img)
	}
	if len(src.frames) > 0 {
		b := src.frames[0].Bounds()
		src.width, src.height = b.Dx(), b.Dy()
	}
	return src, nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening frame: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// ReadyState is HaveEnoughData once at least one frame is loaded.
func (s *DirSource) ReadyState() ReadyState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return HaveNothing
	}
	return HaveEnoughData
}

// Frame returns the next image, wrapping around at the end of the directory.
func (s *DirSource) Frame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return nil, ErrNotReady
	}
	img := s.frames[s.next]
	s.next = (s.next + 1) % len(s.frames)
	return img, nil
}

// Dimensions returns the size of the first frame.
func (s *DirSource) Dimensions() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// Len returns the number of loaded frames.
func (s *DirSource) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

// Still serves one fixed image. Its ready state can be changed at any time,
// which makes it useful for simulating a camera that is still warming up.
type Still struct {
	mu    sync.Mutex
	img   image.Image
	state ReadyState
}

// NewStill returns a Still for img in the given ready state.
func NewStill(img image.Image, state ReadyState) *Still {
	return &Still{img: img, state: state}
}

// SetReadyState updates the reported ready state.
func (s *Still) SetReadyState(state ReadyState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Still) ReadyState() ReadyState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Still) Frame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state < HaveCurrentData || s.img == nil {
		return nil, ErrNotReady
	}
	return s.img, nil
}

func (s *Still) Dimensions() (int, int) {
	if s.img == nil {
		return 0, 0
	}
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}
