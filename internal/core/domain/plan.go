package domain

type StageName string

const (
	StageBackup            StageName = "Backup"
	StageTeardown          StageName = "Teardown"
	StageDeploy            StageName = "Deploy"
	StageRestartDependents StageName = "RestartDependents"
	StageVerify            StageName = "Verify"
)

type StageStatus string

const (
	StagePending    StageStatus = "Pending"
	StageRunning    StageStatus = "Running"
	StageSucceeded  StageStatus = "Succeeded"
	StageFailed     StageStatus = "Failed"
	StageRolledBack StageStatus = "RolledBack"
)

// Stage is one step of a migration plan. The plan itself is immutable after
// construction; only Status and Err mutate, and only from the single
// orchestrating flow.
type Stage struct {
	Name    StageName
	Targets []ResourceRef
	Status  StageStatus
	Err     error
}

type MigrationPlan struct {
	ID     string
	Target string
	Stages []*Stage
}

func (p *MigrationPlan) Stage(name StageName) *Stage {
	for _, s := range p.Stages {
		if s.Name == name {
			return s
		}
	}
	return nil
}

type MigrationOutcome string

const (
	OutcomeSucceeded      MigrationOutcome = "Succeeded"
	OutcomeAborted        MigrationOutcome = "Aborted"
	OutcomeRolledBack     MigrationOutcome = "RolledBack"
	OutcomeRollbackFailed MigrationOutcome = "RollbackFailed"
)

// MigrationResult is the reporter-facing record of one orchestrator run.
// GateReport carries the pre-deploy validation findings; BackupDir is where
// the artifacts for operator recovery live.
type MigrationResult struct {
	PlanID     string
	Target     string
	Outcome    MigrationOutcome
	Stages     []*Stage
	GateReport *ValidationReport
	BackupDir  string
	Message    string
}
