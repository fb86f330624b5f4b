package playback

import (
	"fmt"
	"sync"

	"github.com/gopxl/beep/v2"
)

// Clip holds a fully decoded sound and its format
type Clip struct {
	Buffer *beep.Buffer
	Format beep.Format
}

// Streamer returns a new streamer over the whole clip
func (c *Clip) Streamer() beep.StreamSeeker {
	return c.Buffer.Streamer(0, c.Buffer.Len())
}

// Cache keeps decoded clips in memory, keyed by file path.
// Clips are decoded on first use.
type Cache struct {
	mu    sync.RWMutex
	clips map[string]*Clip
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{clips: make(map[string]*Clip)}
}

// Get returns the decoded clip for path, decoding it when not cached yet
func (c *Cache) Get(path string) (*Clip, error) {
	c.mu.RLock()
	clip, ok := c.clips[path]
	c.mu.RUnlock()
	if ok {
		return clip, nil
	}

	clip, err := decodeClip(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.clips[path]; ok {
		return existing, nil
	}
	c.clips[path] = clip
	return clip, nil
}

// Len returns the number of cached clips
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.clips)
}

// decodeClip decodes a whole file into a buffer
func decodeClip(path string) (*Clip, error) {
	streamer, format, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer streamer.Close()

	buffer := beep.NewBuffer(format)
	buffer.Append(streamer)
	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return &Clip{Buffer: buffer, Format: format}, nil
}
