package domain

import "fmt"

type RefSourceKind string

const (
	RefSourceConfigMap RefSourceKind = "ConfigMap"
	RefSourceSecret    RefSourceKind = "Secret"
	RefSourceLiteral   RefSourceKind = "Literal"
)

// ResourceRef identifies one named, namespaced resource.
type ResourceRef struct {
	Kind      ManifestKind
	Namespace string
	Name      string
}

func (r ResourceRef) String() string {
	if r.Namespace == "" {
		return fmt.Sprintf("%s/%s", r.Kind, r.Name)
	}
	return fmt.Sprintf("%s/%s/%s", r.Kind, r.Namespace, r.Name)
}

// EnvReference records one environment variable wiring on a workload.
// SourceKey is empty for whole-map imports (envFrom).
type EnvReference struct {
	Owner      ResourceRef
	Container  string
	VarName    string
	SourceKind RefSourceKind
	SourceName string
	SourceKey  string
	Optional   bool
}

// ManifestDocument is the normalized form of one parsed input document.
// Immutable after load; the Index owns all documents for one run.
type ManifestDocument struct {
	Kind      ManifestKind
	APIKind   string
	Name      string
	Namespace string
	Source    string
	Data      map[string]string
	Images    []string
	EnvRefs   []EnvReference
	Raw       []byte
}

func (d *ManifestDocument) Ref() ResourceRef {
	return ResourceRef{Kind: d.Kind, Namespace: d.Namespace, Name: d.Name}
}

func (d *ManifestDocument) HasDataKey(key string) bool {
	_, ok := d.Data[key]
	return ok
}
