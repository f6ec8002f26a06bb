package event

// Console lifecycle and history topics.
const (
	TopicConsoleOpened = Topic("console.opened")
	TopicConsoleClosed = Topic("console.closed")

	TopicVersionSaved    = Topic("console.version.saved")
	TopicVersionRestored = Topic("console.version.restored")
	TopicHistoryUndo     = Topic("console.history.undo")
	TopicHistoryRedo     = Topic("console.history.redo")

	TopicPreviewShown    = Topic("console.preview.shown")
	TopicPreviewReplaced = Topic("console.preview.replaced")
	TopicPreviewAccepted = Topic("console.preview.accepted")
	TopicPreviewRejected = Topic("console.preview.rejected")

	TopicDirtyChanged  = Topic("console.dirty.changed")
	TopicPersisted     = Topic("console.persisted")
	TopicPersistFailed = Topic("console.persist.failed")

	// TopicConfigReloaded is published after the config file changes on disk.
	TopicConfigReloaded = Topic("config.reloaded")

	// TopicAllConsole matches every console topic.
	TopicAllConsole = Topic("console.**")
)
