package migrate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/sentinelops/manifest-sentry/internal/core/domain"
	"github.com/sentinelops/manifest-sentry/internal/core/ports"
	"github.com/sentinelops/manifest-sentry/internal/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FileBackupStore persists pre-destruction snapshots under one timestamped
// directory per run. Artifacts are retained for operator inspection and
// never pruned by this tool.
type FileBackupStore struct {
	dir    string
	logger ports.Logger
}

func NewFileBackupStore(root, target string, now time.Time, logger ports.Logger) (*FileBackupStore, error) {
	if root == "" {
		root = "backups"
	}
	dir := filepath.Join(root, fmt.Sprintf("%s-%s", target, now.UTC().Format("20060102T150405Z")))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.CodeBackupError,
			fmt.Sprintf("failed to create backup directory %s", dir))
	}
	return &FileBackupStore{
		dir:    dir,
		logger: logger.WithFields(map[string]any{"component": "backup_store", "dir": dir}),
	}, nil
}

func (s *FileBackupStore) Dir() string { return s.dir }

func (s *FileBackupStore) Save(ctx context.Context, res *domain.LiveResource) (*domain.BackupArtifact, error) {
	artifact := &domain.BackupArtifact{
		ID:         uuid.NewString(),
		Resource:   res.Ref,
		CapturedAt: time.Now().UTC(),
		State:      res.State,
	}

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeBackupError, "failed to serialize backup artifact")
	}

	path := filepath.Join(s.dir, artifactFileName(res.Ref))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, errors.Wrap(err, errors.CodeBackupError,
			fmt.Sprintf("failed to write backup artifact %s", path))
	}
	artifact.Path = path
	s.logger.Infof(ctx, "Captured backup of %s at %s", res.Ref, path)
	return artifact, nil
}

func (s *FileBackupStore) Load(ctx context.Context, ref domain.ResourceRef) (*domain.BackupArtifact, error) {
	path := filepath.Join(s.dir, artifactFileName(ref))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.CodeResourceNotFound, "no backup artifact for %s", ref)
		}
		return nil, errors.Wrap(err, errors.CodeBackupError,
			fmt.Sprintf("failed to read backup artifact %s", path))
	}

	var artifact domain.BackupArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, errors.Wrap(err, errors.CodeBackupError,
			fmt.Sprintf("corrupt backup artifact %s", path))
	}
	artifact.Path = path
	return &artifact, nil
}

func (s *FileBackupStore) List(ctx context.Context) ([]*domain.BackupArtifact, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeBackupError, "failed to list backup directory")
	}

	var artifacts []*domain.BackupArtifact
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeBackupError,
				fmt.Sprintf("failed to read backup artifact %s", path))
		}
		var artifact domain.BackupArtifact
		if err := json.Unmarshal(data, &artifact); err != nil {
			return nil, errors.Wrap(err, errors.CodeBackupError,
				fmt.Sprintf("corrupt backup artifact %s", path))
		}
		artifact.Path = path
		artifacts = append(artifacts, &artifact)
	}

	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].Resource.String() < artifacts[j].Resource.String()
	})
	return artifacts, nil
}

func artifactFileName(ref domain.ResourceRef) string {
	parts := []string{strings.ToLower(string(ref.Kind))}
	if ref.Namespace != "" {
		parts = append(parts, ref.Namespace)
	}
	parts = append(parts, ref.Name)
	return strings.Join(parts, "-") + ".json"
}
