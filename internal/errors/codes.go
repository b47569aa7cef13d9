package errors

type Code string

const (
	CodeUnknown          Code = "UNKNOWN"
	CodeInternal         Code = "INTERNAL_ERROR"
	CodeConfigValidation Code = "CONFIG_VALIDATION_ERROR"
	CodeConfigReadError  Code = "CONFIG_READ_ERROR"
	CodeConfigParseError Code = "CONFIG_PARSE_ERROR"

	// Manifest parse and reference failures travel as Findings, not errors,
	// so only the read path carries a code.
	CodeManifestReadError Code = "MANIFEST_READ_ERROR"

	CodeClusterUnreachable Code = "CLUSTER_UNREACHABLE"
	CodeResourceNotFound   Code = "RESOURCE_NOT_FOUND"
	CodeResourceConflict   Code = "RESOURCE_CONFLICT"
	CodeTransientClient    Code = "TRANSIENT_CLIENT_ERROR"
	CodeTimeout            Code = "TIMEOUT_ERROR"

	CodeFatalStage     Code = "FATAL_STAGE_ERROR"
	CodeRollbackFailed Code = "ROLLBACK_FAILED"
	CodeBackupError    Code = "BACKUP_ERROR"
)

func (c Code) String() string {
	return string(c)
}
