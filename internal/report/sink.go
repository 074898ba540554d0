package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/pablasso/crewflow/internal/executor"
	"github.com/pablasso/crewflow/internal/logging"
	"github.com/pablasso/crewflow/internal/plan"
	"github.com/pablasso/crewflow/internal/util"
)

var _ executor.ReportSink = (*Sink)(nil)

// Sink persists each finished run as <slug>.md and <slug>.json in a directory.
//
// Re-running a task with the same name overwrites its report. Distinct names
// that produce the same slug within one Sink get -2, -3, ... suffixes.
type Sink struct {
	dir    string
	logger logrus.FieldLogger

	mu     sync.Mutex
	owners map[string]string // slug -> task name
	slugs  map[string]string // task name -> slug
}

// NewSink creates a sink writing into dir.
func NewSink(dir string, logger logrus.FieldLogger) *Sink {
	return &Sink{
		dir:    dir,
		logger: logging.OrDiscard(logger),
		owners: make(map[string]string),
		slugs:  make(map[string]string),
	}
}

// Dir returns the reports directory.
func (s *Sink) Dir() string {
	return s.dir
}

// SlugFor returns the file stem used for taskName, reserving it.
func (s *Sink) SlugFor(taskName string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if slug, ok := s.slugs[taskName]; ok {
		return slug
	}

	base := util.Slug(taskName)
	slug := base
	for suffix := 2; ; suffix++ {
		if _, taken := s.owners[slug]; !taken {
			break
		}
		slug = fmt.Sprintf("%s-%d", base, suffix)
	}
	if slug != base {
		s.logger.WithFields(logrus.Fields{"task": taskName, "slug": slug}).Warn("report name collision, using suffixed slug")
	}

	s.owners[slug] = taskName
	s.slugs[taskName] = slug
	return slug
}

// Write implements executor.ReportSink.
func (s *Sink) Write(result *plan.TaskRunResult) error {
	if result == nil {
		return errors.New("nil result")
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create reports directory: %w", err)
	}

	doc, err := Document(result)
	if err != nil {
		return err
	}

	slug := s.SlugFor(result.Task.Name)
	mdPath := filepath.Join(s.dir, slug+".md")
	if err := writeFileAtomic(mdPath, []byte(Markdown(result))); err != nil {
		return err
	}
	if err := writeFileAtomic(filepath.Join(s.dir, slug+".json"), doc); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{"task": result.Task.Name, "path": mdPath}).Info("report written")
	return nil
}

// writeFileAtomic writes data to a temp file next to path and renames it.
func writeFileAtomic(path string, data []byte) error {
	tmpPath := fmt.Sprintf("%s.tmp.%d", path, os.Getpid())

	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Find resolves a task name or slug to the Markdown report in dir.
func Find(dir, name string) (string, error) {
	candidates := []string{name, util.Slug(name)}
	for _, stem := range candidates {
		stem = strings.TrimSuffix(stem, ".md")
		if stem == "" || strings.ContainsAny(stem, `/\`) || stem == ".." {
			continue
		}
		path := filepath.Join(dir, stem+".md")
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", fmt.Errorf("no report named %q in %s", name, dir)
}

// List returns the report slugs in dir, sorted.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read reports directory: %w", err)
	}

	var slugs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if stem, ok := strings.CutSuffix(entry.Name(), ".md"); ok {
			slugs = append(slugs, stem)
		}
	}
	sort.Strings(slugs)
	return slugs, nil
}
