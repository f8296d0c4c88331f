// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRunID = "run_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldStage     = "stage"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Path fields
	FieldPath       = "path"
	FieldSourcePath = "source_path"
	FieldLocalPath  = "local_path"
	FieldOutputPath = "output_path"
	FieldFinalPath  = "final_path"

	// Resource fields
	FieldBytes  = "bytes"
	FieldReason = "reason"
)
