package logging

// Standardized field names for structured logging.
// Keeping them in one place lets operators filter run output consistently.
const (
	FieldRunID      = "run_id"
	FieldBudget     = "budget"
	FieldGroup      = "group"
	FieldCategory   = "category"
	FieldAmount     = "amount"
	FieldStep       = "step"
	FieldStatus     = "status"
	FieldReason     = "reason"
	FieldStrategy   = "strategy"
	FieldLookup     = "lookup"
	FieldURL        = "url"
	FieldFile       = "file_path"
	FieldCount      = "count"
	FieldDelimiter  = "delimiter"
	FieldSource     = "source"
	FieldError      = "error"
	FieldDuration   = "duration_ms"
	FieldComponent  = "component"
	FieldRemoteAddr = "remote_addr"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldInputFile  = "input_file"
	FieldOutputFile = "output_file"
	FieldTargetID   = "target_id"
	FieldArtifact   = "artifact"
)

// Component names used with FieldComponent.
const (
	ComponentNormalizer   = "normalizer"
	ComponentSession      = "session"
	ComponentNavigator    = "navigator"
	ComponentSynchronizer = "synchronizer"
	ComponentRunner       = "runner"
	ComponentWeb          = "web"
	ComponentHistory      = "history"
	ComponentDiagnostics  = "diagnostics"
)
