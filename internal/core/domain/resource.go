package domain

import "time"

// LiveResource is the control plane's view of one resource, as returned by
// the resource client. State holds the serialized object exactly as the
// control plane reported it, suitable for re-apply.
type LiveResource struct {
	Ref    ResourceRef
	Labels map[string]string
	Ready  bool
	State  []byte
}

// BackupArtifact is a persisted snapshot of a resource's state captured
// before a destructive stage. Artifacts are retained for operator
// inspection and never deleted by this tool.
type BackupArtifact struct {
	ID         string      `json:"id"`
	Resource   ResourceRef `json:"resource"`
	CapturedAt time.Time   `json:"captured_at"`
	State      []byte      `json:"state"`
	Path       string      `json:"-"`
}
