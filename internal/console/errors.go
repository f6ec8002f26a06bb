package console

import "errors"

// Console errors.
var (
	// ErrPreviewActive is returned for operations refused while a suggestion is pending.
	ErrPreviewActive = errors.New("preview in progress")

	// ErrNoPreview is returned by Accept and Reject when nothing is pending.
	ErrNoPreview = errors.New("no preview in progress")

	// ErrNothingToUndo is returned by Undo at the oldest version.
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrNothingToRedo is returned by Redo at the newest version.
	ErrNothingToRedo = errors.New("nothing to redo")

	// ErrVersionNotFound is returned by Restore for unknown version ids.
	ErrVersionNotFound = errors.New("version not found")

	// ErrInvalidModification is returned for malformed modifications.
	ErrInvalidModification = errors.New("invalid modification")

	// ErrConsoleNotFound is returned by Registry lookups for unknown ids.
	ErrConsoleNotFound = errors.New("console not found")

	// ErrConsoleClosed is returned by operations on a closed console.
	ErrConsoleClosed = errors.New("console closed")

	// ErrInvalidID is returned when opening a console with an empty id.
	ErrInvalidID = errors.New("invalid console id")

	// ErrNoPersister is returned by Persist when no Persister is configured.
	ErrNoPersister = errors.New("no persister configured")
)
