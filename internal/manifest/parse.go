package manifest

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sentinelops/manifest-sentry/internal/core/domain"
	"github.com/sentinelops/manifest-sentry/pkg/convert"
)

// parseDocument normalizes one YAML document into a ManifestDocument. A
// malformed document yields a Finding instead of an error so the caller can
// keep loading siblings.
func parseDocument(path string, docIndex int, raw []byte) (*domain.ManifestDocument, *domain.Finding) {
	var root map[string]any
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, &domain.Finding{
			Severity:    domain.SeverityError,
			RuleID:      RuleIDManifestParse,
			Resource:    domain.ResourceRef{Kind: domain.KindOther, Name: filepath.Base(path)},
			Message:     fmt.Sprintf("%s (document %d): invalid YAML: %v", path, docIndex, err),
			Remediation: "Fix the YAML syntax; the document was skipped.",
		}
	}
	if root == nil {
		return nil, nil
	}

	apiKind, _ := convert.NestedString(root, "kind")
	name, _ := convert.NestedString(root, "metadata", "name")
	namespace, _ := convert.NestedString(root, "metadata", "namespace")

	if apiKind == "" || name == "" {
		return nil, &domain.Finding{
			Severity:    domain.SeverityError,
			RuleID:      RuleIDManifestParse,
			Resource:    domain.ResourceRef{Kind: domain.KindOther, Name: filepath.Base(path)},
			Message:     fmt.Sprintf("%s (document %d): missing kind or metadata.name", path, docIndex),
			Remediation: "Every document needs kind and metadata.name.",
		}
	}

	doc := &domain.ManifestDocument{
		Kind:      domain.KindFromAPIValue(apiKind),
		APIKind:   apiKind,
		Name:      name,
		Namespace: namespace,
		Source:    path,
		Raw:       raw,
	}

	switch doc.Kind {
	case domain.KindConfigMap, domain.KindSecret:
		doc.Data = extractData(root)
	case domain.KindDeployment, domain.KindJob:
		doc.Images = extractImages(root)
		doc.EnvRefs = extractEnvRefs(root, doc.Ref())
	}

	return doc, nil
}

// extractData merges the data and stringData blocks of a ConfigMap/Secret.
func extractData(root map[string]any) map[string]string {
	out := make(map[string]string)
	for _, block := range []string{"data", "stringData"} {
		if m, ok := convert.NestedMap(root, block); ok {
			sm, err := convert.ToStringMap(m)
			if err != nil {
				continue
			}
			for k, v := range sm {
				out[k] = v
			}
		}
	}
	return out
}

func extractImages(root map[string]any) []string {
	spec, ok := convert.NestedMap(root, "spec", "template", "spec")
	if !ok {
		return nil
	}
	var images []string
	for _, block := range []string{"initContainers", "containers"} {
		containers, ok := convert.NestedSlice(spec, block)
		if !ok {
			continue
		}
		for _, c := range containers {
			cm, ok := c.(map[string]any)
			if !ok {
				continue
			}
			if img, ok := convert.NestedString(cm, "image"); ok && img != "" {
				images = append(images, img)
			}
		}
	}
	return images
}

func extractEnvRefs(root map[string]any, owner domain.ResourceRef) []domain.EnvReference {
	spec, ok := convert.NestedMap(root, "spec", "template", "spec")
	if !ok {
		return nil
	}
	containers, ok := convert.NestedSlice(spec, "containers")
	if !ok {
		return nil
	}

	var refs []domain.EnvReference
	for _, c := range containers {
		cm, ok := c.(map[string]any)
		if !ok {
			continue
		}
		containerName, _ := convert.NestedString(cm, "name")

		if envs, ok := convert.NestedSlice(cm, "env"); ok {
			for _, e := range envs {
				em, ok := e.(map[string]any)
				if !ok {
					continue
				}
				refs = append(refs, parseEnvEntry(em, owner, containerName))
			}
		}

		if envFrom, ok := convert.NestedSlice(cm, "envFrom"); ok {
			for _, e := range envFrom {
				em, ok := e.(map[string]any)
				if !ok {
					continue
				}
				if ref, ok := parseEnvFromEntry(em, owner, containerName); ok {
					refs = append(refs, ref)
				}
			}
		}
	}
	return refs
}

func parseEnvEntry(entry map[string]any, owner domain.ResourceRef, container string) domain.EnvReference {
	ref := domain.EnvReference{
		Owner:      owner,
		Container:  container,
		SourceKind: domain.RefSourceLiteral,
	}
	ref.VarName, _ = convert.NestedString(entry, "name")

	if cmRef, ok := convert.NestedMap(entry, "valueFrom", "configMapKeyRef"); ok {
		ref.SourceKind = domain.RefSourceConfigMap
		ref.SourceName, _ = convert.NestedString(cmRef, "name")
		ref.SourceKey, _ = convert.NestedString(cmRef, "key")
		ref.Optional = convert.NestedBool(cmRef, "optional")
		return ref
	}
	if secRef, ok := convert.NestedMap(entry, "valueFrom", "secretKeyRef"); ok {
		ref.SourceKind = domain.RefSourceSecret
		ref.SourceName, _ = convert.NestedString(secRef, "name")
		ref.SourceKey, _ = convert.NestedString(secRef, "key")
		ref.Optional = convert.NestedBool(secRef, "optional")
		return ref
	}
	return ref
}

func parseEnvFromEntry(entry map[string]any, owner domain.ResourceRef, container string) (domain.EnvReference, bool) {
	ref := domain.EnvReference{Owner: owner, Container: container}
	if cmRef, ok := convert.NestedMap(entry, "configMapRef"); ok {
		ref.SourceKind = domain.RefSourceConfigMap
		ref.SourceName, _ = convert.NestedString(cmRef, "name")
		ref.Optional = convert.NestedBool(cmRef, "optional")
		return ref, ref.SourceName != ""
	}
	if secRef, ok := convert.NestedMap(entry, "secretRef"); ok {
		ref.SourceKind = domain.RefSourceSecret
		ref.SourceName, _ = convert.NestedString(secRef, "name")
		ref.Optional = convert.NestedBool(secRef, "optional")
		return ref, ref.SourceName != ""
	}
	return ref, false
}

// parsePipeline normalizes a CI pipeline definition. The only part of the
// pipeline this tool models is the set of image repositories it declares.
func parsePipeline(path string, raw []byte) (*domain.ManifestDocument, *domain.Finding) {
	var root map[string]any
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, &domain.Finding{
			Severity:    domain.SeverityError,
			RuleID:      RuleIDManifestParse,
			Resource:    domain.ResourceRef{Kind: domain.KindPipeline, Name: filepath.Base(path)},
			Message:     fmt.Sprintf("%s: invalid YAML in pipeline definition: %v", path, err),
			Remediation: "Fix the YAML syntax; the pipeline document was skipped.",
		}
	}

	doc := &domain.ManifestDocument{
		Kind:    domain.KindPipeline,
		APIKind: "Pipeline",
		Name:    filepath.Base(path),
		Source:  path,
		Raw:     raw,
		Images:  collectImageValues(root),
	}
	return doc, nil
}

// collectImageValues walks the whole pipeline document and gathers string
// values under image-naming keys, wherever they sit in the structure.
func collectImageValues(node any) []string {
	seen := make(map[string]struct{})
	var walk func(any)
	walk = func(n any) {
		switch v := n.(type) {
		case map[string]any:
			for k, val := range v {
				if s, ok := val.(string); ok && isImageKey(k) && s != "" {
					seen[s] = struct{}{}
					continue
				}
				walk(val)
			}
		case []any:
			for _, item := range v {
				walk(item)
			}
		}
	}
	walk(node)

	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func isImageKey(key string) bool {
	switch strings.ToLower(key) {
	case "image", "imagerepository", "image_repository", "imagename", "image_name":
		return true
	}
	return false
}

// RepositoryOf strips the tag or digest from an image reference, leaving the
// repository name.
func RepositoryOf(image string) string {
	if at := strings.Index(image, "@"); at >= 0 {
		image = image[:at]
	}
	slash := strings.LastIndex(image, "/")
	if colon := strings.LastIndex(image, ":"); colon > slash {
		image = image[:colon]
	}
	return image
}
