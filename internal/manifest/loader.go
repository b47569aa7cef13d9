// Package manifest loads declarative configuration documents from disk and
// builds the normalized index the validation rules run against.
package manifest

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sentinelops/manifest-sentry/internal/core/domain"
	"github.com/sentinelops/manifest-sentry/internal/core/ports"
	"github.com/sentinelops/manifest-sentry/internal/errors"
)

const RuleIDManifestParse = "manifest-parse"

type Config struct {
	// PipelineFiles lists base file names treated as CI pipeline
	// definitions rather than platform manifests.
	PipelineFiles []string `yaml:"pipeline_files" mapstructure:"pipeline_files"`
}

func DefaultConfig() Config {
	return Config{
		PipelineFiles: []string{"pipeline.yaml", "pipeline.yml", "azure-pipelines.yml", ".gitlab-ci.yml"},
	}
}

type Loader struct {
	config Config
	logger ports.Logger
}

func NewLoader(cfg Config, logger ports.Logger) *Loader {
	if len(cfg.PipelineFiles) == 0 {
		cfg.PipelineFiles = DefaultConfig().PipelineFiles
	}
	return &Loader{
		config: cfg,
		logger: logger.WithFields(map[string]any{"component": "manifest_loader"}),
	}
}

// Load reads every YAML document under dir and builds the index. Malformed
// documents become Error findings and do not abort the load of siblings:
// the index must be maximally complete so one validation pass can surface
// every issue at once. Only an unreadable directory is a hard error.
func (l *Loader) Load(ctx context.Context, dir string) (*domain.Index, []domain.Finding, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, nil, errors.WrapUserFacing(err, errors.CodeManifestReadError,
			fmt.Sprintf("cannot read manifest directory %s", dir),
			"Check that the path exists and is readable.")
	}
	if !info.IsDir() {
		return nil, nil, errors.NewUserFacing(errors.CodeManifestReadError,
			fmt.Sprintf("%s is not a directory", dir), "Pass a directory of manifest files.")
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeManifestReadError, "failed walking manifest directory")
	}
	sort.Strings(files)

	return l.LoadFiles(ctx, files)
}

// LoadFiles builds the index from an explicit file list. The build is two
// pass: every document is indexed first, then cross-document references are
// resolved, so document ordering never affects correctness.
func (l *Loader) LoadFiles(ctx context.Context, files []string) (*domain.Index, []domain.Finding, error) {
	index := domain.NewIndex()
	var findings []domain.Finding

	for _, path := range files {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}

		content, err := os.ReadFile(path)
		if err != nil {
			findings = append(findings, domain.Finding{
				Severity:    domain.SeverityError,
				RuleID:      RuleIDManifestParse,
				Resource:    domain.ResourceRef{Kind: domain.KindOther, Name: filepath.Base(path)},
				Message:     fmt.Sprintf("failed to read %s: %v", path, err),
				Remediation: "Check file permissions.",
			})
			continue
		}

		docs, fds := l.parseFile(path, content)
		findings = append(findings, fds...)
		for _, doc := range docs {
			index.Add(doc)
		}
	}

	index.ResolveReferences()
	l.logger.Debugf(ctx, "Loaded %d documents from %d files (%d parse findings)",
		index.Len(), len(files), len(findings))
	return index, findings, nil
}

func (l *Loader) parseFile(path string, content []byte) ([]*domain.ManifestDocument, []domain.Finding) {
	base := filepath.Base(path)
	if l.isPipelineFile(base) {
		doc, finding := parsePipeline(path, content)
		if finding != nil {
			return nil, []domain.Finding{*finding}
		}
		return []*domain.ManifestDocument{doc}, nil
	}

	var docs []*domain.ManifestDocument
	var findings []domain.Finding
	for i, chunk := range splitDocuments(content) {
		doc, finding := parseDocument(path, i, chunk)
		if finding != nil {
			findings = append(findings, *finding)
			continue
		}
		if doc != nil {
			docs = append(docs, doc)
		}
	}
	return docs, findings
}

func (l *Loader) isPipelineFile(base string) bool {
	for _, p := range l.config.PipelineFiles {
		if base == p {
			return true
		}
	}
	return false
}

// splitDocuments splits a multi-document YAML file on document separators,
// preserving the raw bytes of each document for later re-apply.
func splitDocuments(content []byte) [][]byte {
	lines := bytes.Split(content, []byte("\n"))
	var chunks [][]byte
	var cur [][]byte

	flush := func() {
		joined := bytes.TrimSpace(bytes.Join(cur, []byte("\n")))
		if len(joined) > 0 {
			chunks = append(chunks, joined)
		}
		cur = nil
	}

	for _, line := range lines {
		trimmed := bytes.TrimRight(line, " \t")
		if bytes.Equal(trimmed, []byte("---")) {
			flush()
			continue
		}
		cur = append(cur, line)
	}
	flush()
	return chunks
}
