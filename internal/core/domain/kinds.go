package domain

type ManifestKind string

const (
	KindDeployment ManifestKind = "Deployment"
	KindConfigMap  ManifestKind = "ConfigMap"
	KindSecret     ManifestKind = "Secret"
	KindService    ManifestKind = "Service"
	KindJob        ManifestKind = "Job"
	KindPipeline   ManifestKind = "Pipeline"
	KindOther      ManifestKind = "Other"
)

func (mk ManifestKind) String() string {
	return string(mk)
}

// KindFromAPIValue maps a manifest's declared kind field onto the kinds this
// tool models. CronJob collapses into Job; anything unrecognized is Other.
func KindFromAPIValue(kind string) ManifestKind {
	switch kind {
	case "Deployment", "StatefulSet", "DaemonSet":
		return KindDeployment
	case "ConfigMap":
		return KindConfigMap
	case "Secret":
		return KindSecret
	case "Service":
		return KindService
	case "Job", "CronJob":
		return KindJob
	case "Pipeline":
		return KindPipeline
	default:
		return KindOther
	}
}
