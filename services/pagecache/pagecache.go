package pagecache

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DateFormat is the directory name for one crawl day's snapshots.
const DateFormat = "2006-01-02"

// Store persists fetched listing pages on disk so a report can be
// rebuilt, or a crawl resumed, without re-fetching. Snapshots are
// keyed by (date, category, page): one file per page under a dated
// directory.
type Store struct {
	root string
}

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create page cache root: %w", err)
	}
	return &Store{root: dir}, nil
}

func (s *Store) pageFile(date, category string, page int) string {
	return filepath.Join(s.root, date, fmt.Sprintf("%s_page%02d.html", category, page))
}

// Put writes one page snapshot.
func (s *Store) Put(date, category string, page int, html []byte) error {
	dir := filepath.Join(s.root, date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot dir: %w", err)
	}
	return os.WriteFile(s.pageFile(date, category, page), html, 0o644)
}

// Get reads one page snapshot. A missing snapshot returns an error
// satisfying os.IsNotExist.
func (s *Store) Get(date, category string, page int) ([]byte, error) {
	return os.ReadFile(s.pageFile(date, category, page))
}

// Exists reports whether a snapshot for the given page is present.
func (s *Store) Exists(date, category string, page int) bool {
	_, err := os.Stat(s.pageFile(date, category, page))
	return err == nil
}

// Pages lists the snapshot page numbers present for a category on a
// date, in ascending order.
func (s *Store) Pages(date, category string) ([]int, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, date))
	if err != nil {
		return nil, err
	}

	prefix := category + "_page"
	var pages []int
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".html") {
			continue
		}
		numPart := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".html")
		page, err := strconv.Atoi(numPart)
		if err != nil {
			continue
		}
		pages = append(pages, page)
	}
	sort.Ints(pages)
	return pages, nil
}

// LatestDate returns the most recent dated snapshot directory, so a
// report can be built from the last crawl when today's pages were
// never fetched.
func (s *Store) LatestDate() (string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return "", err
	}

	latest := ""
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if _, err := time.Parse(DateFormat, name); err != nil {
			continue
		}
		if name > latest {
			latest = name
		}
	}
	if latest == "" {
		return "", fmt.Errorf("no snapshot directories under %s", s.root)
	}
	return latest, nil
}

// Today returns the snapshot date for a crawl started now.
func Today() string {
	return time.Now().Format(DateFormat)
}
