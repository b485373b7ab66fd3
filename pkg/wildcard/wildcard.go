// Package wildcard substitutes __name__ placeholders with a random line of name.txt.
package wildcard

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

var (
	ErrEmptyWildcard   = errors.New("wildcard file has no line")
	ErrInvalidWildcard = errors.New("invalid wildcard name")
)

var placeholder = regexp.MustCompile(`__(.*?)__`)

// Cache keeps the lines of the wildcard files it loaded. Concurrent loads of the same file are
// deduplicated. A Cache is meant to be scoped to a pipeline or a run and passed to the tasks using it.
type Cache struct {
	mu    sync.RWMutex
	lines map[string][]string
	group singleflight.Group

	randMu sync.Mutex
	rand   *rand.Rand
}

type Option func(c *Cache)

// WithRand sets the random source used to pick lines.
func WithRand(r *rand.Rand) Option {
	return func(c *Cache) {
		c.rand = r
	}
}

func NewCache(opts ...Option) *Cache {
	c := &Cache{
		lines: make(map[string][]string),
		rand:  rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Lines returns the non blank lines of the file at path, loading it once.
func (c *Cache) Lines(path string) ([]string, error) {
	c.mu.RLock()
	lines, ok := c.lines[path]
	c.mu.RUnlock()
	if ok {
		return lines, nil
	}

	v, err, _ := c.group.Do(path, func() (any, error) {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to read wildcard file %s", path)
		}
		lines := []string{}
		for _, line := range strings.Split(string(content), "\n") {
			line = strings.TrimRight(line, "\r")
			if strings.TrimSpace(line) == "" {
				continue
			}
			lines = append(lines, line)
		}

		c.mu.Lock()
		c.lines[path] = lines
		c.mu.Unlock()

		return lines, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]string), nil
}

func (c *Cache) pick(lines []string) string {
	c.randMu.Lock()
	defer c.randMu.Unlock()

	return lines[c.rand.IntN(len(lines))]
}

// Replace substitutes every __name__ of s with one random line of dir/name.txt. All the
// occurrences of a name get the same line. An empty dir leaves s unchanged.
func (c *Cache) Replace(s, dir string) (string, error) {
	if dir == "" {
		return s, nil
	}

	replacements := make(map[string]string)
	for _, match := range placeholder.FindAllStringSubmatch(s, -1) {
		name := match[1]
		if _, done := replacements[name]; done {
			continue
		}
		if name == "" || strings.ContainsAny(name, `/\`) || name == ".." {
			return "", errors.Wrapf(ErrInvalidWildcard, "%q", name)
		}
		lines, err := c.Lines(filepath.Join(dir, name+".txt"))
		if err != nil {
			return "", err
		}
		if len(lines) == 0 {
			return "", errors.Wrapf(ErrEmptyWildcard, "%s", name)
		}
		replacements[name] = c.pick(lines)
	}

	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		return replacements[m[2:len(m)-2]]
	}), nil
}

// Replacer returns a task body replacing the wildcards of its input from dir.
func (c *Cache) Replacer(dir string) func(ctx context.Context, s string) (string, error) {
	return func(_ context.Context, s string) (string, error) {
		return c.Replace(s, dir)
	}
}
