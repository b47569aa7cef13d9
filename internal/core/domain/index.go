package domain

import "sort"

type indexKey struct {
	kind ManifestKind
	ns   string
	name string
}

type refKey struct {
	kind RefSourceKind
	name string
	key  string
}

// Index holds every document loaded in one run plus the lookup structures
// the validation rules walk. Built once by the manifest loader; read-only
// afterwards.
type Index struct {
	docs    []*ManifestDocument
	byIdent map[indexKey]*ManifestDocument
	byRef   map[refKey][]ResourceRef
}

func NewIndex() *Index {
	return &Index{
		byIdent: make(map[indexKey]*ManifestDocument),
		byRef:   make(map[refKey][]ResourceRef),
	}
}

func (ix *Index) Add(doc *ManifestDocument) {
	if doc == nil {
		return
	}
	ix.docs = append(ix.docs, doc)
	ix.byIdent[indexKey{doc.Kind, doc.Namespace, doc.Name}] = doc
}

// ResolveReferences builds the reverse index from (source kind, name, key)
// to the workloads referencing it. Called once, after every document has
// been added, so document ordering within the input set is irrelevant.
func (ix *Index) ResolveReferences() {
	ix.byRef = make(map[refKey][]ResourceRef)
	for _, doc := range ix.docs {
		for _, ref := range doc.EnvRefs {
			if ref.SourceKind == RefSourceLiteral {
				continue
			}
			k := refKey{ref.SourceKind, ref.SourceName, ref.SourceKey}
			ix.byRef[k] = append(ix.byRef[k], ref.Owner)
		}
	}
}

func (ix *Index) Get(kind ManifestKind, namespace, name string) (*ManifestDocument, bool) {
	doc, ok := ix.byIdent[indexKey{kind, namespace, name}]
	return doc, ok
}

// Lookup finds a document by kind and name regardless of namespace. Used to
// resolve env references, which name their source without a namespace.
func (ix *Index) Lookup(kind ManifestKind, name string) (*ManifestDocument, bool) {
	for _, doc := range ix.docs {
		if doc.Kind == kind && doc.Name == name {
			return doc, true
		}
	}
	return nil, false
}

func (ix *Index) ByKind(kind ManifestKind) []*ManifestDocument {
	var out []*ManifestDocument
	for _, doc := range ix.docs {
		if doc.Kind == kind {
			out = append(out, doc)
		}
	}
	return out
}

func (ix *Index) Documents() []*ManifestDocument {
	return ix.docs
}

// Referencing lists workloads that reference the given source key, sorted
// for deterministic rule output.
func (ix *Index) Referencing(kind RefSourceKind, name, key string) []ResourceRef {
	refs := ix.byRef[refKey{kind, name, key}]
	out := make([]ResourceRef, len(refs))
	copy(out, refs)
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func (ix *Index) Len() int {
	return len(ix.docs)
}
