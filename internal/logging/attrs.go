package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldGroupID is the standardized structured logging key for group identifiers.
	FieldGroupID = "group_id"
	// FieldFileID is the standardized structured logging key for file identifiers.
	FieldFileID = "file_id"
	// FieldStage is the standardized structured logging key for pipeline stage names.
	FieldStage = "stage"
	// FieldStatus is the standardized structured logging key for file statuses.
	FieldStatus = "status"
	// FieldTarget is the standardized structured logging key for dispatch target URLs.
	FieldTarget = "target"
)
