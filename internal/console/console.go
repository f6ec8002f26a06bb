package console

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dshills/querystorm/internal/engine/history"
	"github.com/dshills/querystorm/internal/engine/patch"
	"github.com/dshills/querystorm/internal/engine/preview"
	"github.com/dshills/querystorm/internal/event"
	"github.com/dshills/querystorm/internal/logging"
)

// BeforeAIDescription describes the user version recorded when a suggestion is committed.
const BeforeAIDescription = "Before AI modification"

// Console is one open query buffer with its history and preview state.
type Console struct {
	mu sync.Mutex

	id      string
	surface Surface
	history *history.Manager
	session *preview.Session
	dirty   *dirtyTracker

	// content is the last content seen on or written to the surface.
	content string

	// burst is true while edits are waiting for the trailing save.
	burst    bool
	debounce debounceHandle
	// suspended records a burst that was interrupted by a preview.
	suspended bool

	clock     Clock
	interval  time.Duration
	persister Persister
	log       *logging.Logger
	bus       *event.Bus

	outbox        []event.Event
	reportedDirty bool
	closed        bool
}

// New creates a console for surface. The surface's current value is taken
// as already persisted.
func New(id string, surface Surface, opts ...Option) *Console {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}

	histOpts := []history.Option{
		history.WithMaxEntries(s.maxVersions),
		history.WithClock(s.clock.Now),
	}
	if s.idGen != nil {
		histOpts = append(histOpts, history.WithIDGenerator(s.idGen))
	}

	content := surface.Value()
	c := &Console{
		id:        id,
		surface:   surface,
		history:   history.NewManager(histOpts...),
		session:   preview.NewSession(),
		dirty:     newDirtyTracker(content),
		content:   content,
		clock:     s.clock,
		interval:  s.debounce,
		persister: s.persister,
		log:       s.logger.WithField("console", id),
		bus:       s.bus,
	}

	c.mu.Lock()
	defer c.unlock()

	if s.seed {
		c.saveLocked(content, history.OriginUser, InitialDescription)
	}
	if n, ok := surface.(Notifier); ok {
		n.OnChange(func(ch Change) {
			if err := c.HandleChange(ch); err != nil && !errors.Is(err, ErrConsoleClosed) {
				c.log.Debug("change not recorded: %v", err)
			}
		})
	}
	c.queueLocked(event.TopicConsoleOpened, EventPayload{})
	c.log.Debug("opened with %d bytes", len(content))
	return c
}

// ID returns the console id.
func (c *Console) ID() string { return c.id }

// Surface returns the bound surface.
func (c *Console) Surface() Surface { return c.surface }

// HandleChange processes a change reported by the surface.
//
// Programmatic changes only refresh the dirty state. User changes are
// debounced into versions; they are refused with ErrPreviewActive while a
// suggestion is pending.
func (c *Console) HandleChange(ch Change) error {
	if ch.Mode == ModeProgrammaticWrite {
		// The writer holds the console lock and records the write itself.
		c.dirty.update(ch.Text)
		return nil
	}

	c.mu.Lock()
	defer c.unlock()

	if c.closed {
		return ErrConsoleClosed
	}

	if c.session.IsPreviewing() {
		// The pending suggestion was computed from c.content; text typed
		// meanwhile is picked up by Reject and overwritten by Accept.
		return ErrPreviewActive
	}
	c.dirty.update(ch.Text)
	c.recordUserTextLocked(ch.Text)
	return nil
}

func (c *Console) recordUserTextLocked(text string) {
	if text == c.content {
		return
	}
	if !c.burst {
		// Anchor the burst on the content it started from
		c.saveLocked(c.content, history.OriginUser, "")
		c.burst = true
	}
	c.content = text
	c.debounce.arm(c.clock, c.interval, c.onDebounce)
}

// Edit replaces the surface content as a user edit.
func (c *Console) Edit(text string) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if c.session.IsPreviewing() {
		return ErrPreviewActive
	}
	c.surface.SetValue(text, ModeNormal)
	if _, ok := c.surface.(Notifier); !ok {
		return c.HandleChange(Change{Text: text, Mode: ModeNormal})
	}
	return nil
}

func (c *Console) checkOpen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConsoleClosed
	}
	return nil
}

func (c *Console) onDebounce(gen uint64) {
	c.mu.Lock()
	defer c.unlock()

	if c.closed || !c.burst || !c.debounce.current(gen) {
		return
	}
	c.debounce.timer = nil
	c.burst = false
	c.saveLocked(c.content, history.OriginUser, "")
}

// Flush saves a pending burst immediately.
func (c *Console) Flush() error {
	c.mu.Lock()
	defer c.unlock()

	if c.closed {
		return ErrConsoleClosed
	}
	c.flushLocked()
	return nil
}

func (c *Console) flushLocked() {
	if !c.burst {
		return
	}
	c.debounce.cancel()
	c.burst = false
	c.saveLocked(c.content, history.OriginUser, "")
}

func (c *Console) saveLocked(content string, origin history.Origin, description string) (history.Entry, bool) {
	entry, ok := c.history.Save(content, origin, description)
	if !ok {
		return entry, false
	}
	c.log.Debug("saved version %s (%s, %d bytes)", entry.ID, entry.Description, len(content))
	c.queueLocked(event.TopicVersionSaved, EventPayload{
		VersionID:   entry.ID,
		Origin:      entry.Origin,
		Description: entry.Description,
	})
	return entry, true
}

// writeLocked puts text on the surface as a programmatic write.
func (c *Console) writeLocked(text string) {
	c.content = text
	c.surface.SetValue(text, ModeProgrammaticWrite)
	c.dirty.update(text)
}

// Undo moves back one version and writes it to the surface.
func (c *Console) Undo() (string, error) {
	return c.step(true)
}

// Redo moves forward one version and writes it to the surface.
func (c *Console) Redo() (string, error) {
	return c.step(false)
}

func (c *Console) step(back bool) (string, error) {
	c.mu.Lock()
	defer c.unlock()

	if err := c.editableLocked(); err != nil {
		return "", err
	}
	c.flushLocked()

	var (
		content string
		ok      bool
		topic   = event.TopicHistoryUndo
		errNone = ErrNothingToUndo
	)
	if back {
		content, ok = c.history.Undo()
	} else {
		content, ok = c.history.Redo()
		topic, errNone = event.TopicHistoryRedo, ErrNothingToRedo
	}
	if !ok {
		return "", errNone
	}

	c.writeLocked(content)
	payload := EventPayload{}
	if cur, ok := c.history.Current(); ok {
		payload.VersionID = cur.ID
	}
	c.queueLocked(topic, payload)
	return content, nil
}

// Restore moves to the version with the given id and writes it to the
// surface. Versions on both sides are kept.
func (c *Console) Restore(id string) (string, error) {
	c.mu.Lock()
	defer c.unlock()

	if err := c.editableLocked(); err != nil {
		return "", err
	}
	c.flushLocked()

	content, ok := c.history.Restore(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrVersionNotFound, id)
	}
	c.writeLocked(content)
	c.queueLocked(event.TopicVersionRestored, EventPayload{VersionID: id})
	return content, nil
}

func (c *Console) editableLocked() error {
	if c.closed {
		return ErrConsoleClosed
	}
	if c.session.IsPreviewing() {
		return ErrPreviewActive
	}
	return nil
}

// ShowDiff previews mod against the live content. The surface is not
// changed. Calling it again while previewing replaces the earlier suggestion.
func (c *Console) ShowDiff(mod patch.Modification) (preview.PreviewingDiff, error) {
	c.mu.Lock()
	defer c.unlock()

	if c.closed {
		return preview.PreviewingDiff{}, ErrConsoleClosed
	}
	original := c.surface.Value()
	if err := c.checkModificationLocked(original, mod); err != nil {
		return preview.PreviewingDiff{}, err
	}

	c.suspendBurstLocked()
	diff, replaced := c.session.Show(original, mod)
	if replaced {
		c.log.Warn("pending suggestion replaced by %s", mod)
		c.queueLocked(event.TopicPreviewReplaced, EventPayload{Action: mod.Action()})
	}
	c.queueLocked(event.TopicPreviewShown, EventPayload{Action: mod.Action()})
	return diff, nil
}

// suspendBurstLocked stops the trailing timer without saving. The pending
// content is recorded by a commit or the burst resumes on reject.
func (c *Console) suspendBurstLocked() {
	if !c.burst {
		return
	}
	c.debounce.cancel()
	c.burst = false
	c.suspended = true
}

func (c *Console) resumeBurstLocked() {
	if !c.suspended {
		return
	}
	c.suspended = false
	c.burst = true
	c.debounce.arm(c.clock, c.interval, c.onDebounce)
}

func (c *Console) checkModificationLocked(current string, mod patch.Modification) error {
	err := patch.Check(current, mod)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, patch.ErrLineOutOfRange):
		c.log.Warn("%s leaves the buffer unchanged: %v", mod, err)
		return nil
	default:
		return fmt.Errorf("%w: %v", ErrInvalidModification, err)
	}
}

// Accept commits the pending suggestion: the modified content is written to
// the surface and two versions are recorded, the original as a user version
// and the result as an AI version.
func (c *Console) Accept() (preview.Result, error) {
	c.mu.Lock()
	defer c.unlock()

	if c.closed {
		return preview.Result{}, ErrConsoleClosed
	}
	res, ok := c.session.Accept()
	if !ok {
		return preview.Result{}, ErrNoPreview
	}
	c.commitLocked(res.Original, res.Modified, res.Modification)
	c.queueLocked(event.TopicPreviewAccepted, EventPayload{Action: res.Modification.Action()})
	return res, nil
}

// Reject discards the pending suggestion without writing to the surface.
// Text typed on the surface while the preview was shown becomes a user edit.
func (c *Console) Reject() error {
	c.mu.Lock()
	defer c.unlock()

	if c.closed {
		return ErrConsoleClosed
	}
	if !c.session.Reject() {
		return ErrNoPreview
	}
	c.resumeBurstLocked()
	if text := c.surface.Value(); text != c.content {
		c.dirty.update(text)
		c.recordUserTextLocked(text)
	}
	c.queueLocked(event.TopicPreviewRejected, EventPayload{})
	return nil
}

// ApplyDirect commits mod without a preview.
func (c *Console) ApplyDirect(mod patch.Modification) (preview.Result, error) {
	c.mu.Lock()
	defer c.unlock()

	if err := c.editableLocked(); err != nil {
		return preview.Result{}, err
	}
	original := c.surface.Value()
	if err := c.checkModificationLocked(original, mod); err != nil {
		return preview.Result{}, err
	}

	c.suspendBurstLocked()
	modified := patch.Apply(original, mod)
	c.commitLocked(original, modified, mod)
	return preview.Result{Original: original, Modified: modified, Modification: mod}, nil
}

func (c *Console) commitLocked(original, modified string, mod patch.Modification) {
	c.suspended = false
	c.writeLocked(modified)
	c.saveLocked(original, history.OriginUser, BeforeAIDescription)
	c.saveLocked(modified, history.OriginAI, "AI "+mod.Action())
	c.log.Debug("committed %s", mod)
}

// Persist stores the current content through the Persister and, on
// success, marks it as the persisted baseline.
func (c *Console) Persist(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrConsoleClosed
	}
	c.flushLocked()
	content := c.content
	p := c.persister
	c.unlock()

	if p == nil {
		return ErrNoPersister
	}

	err := p.Persist(ctx, c.id, content)

	c.mu.Lock()
	defer c.unlock()
	if err != nil {
		c.log.Warn("persist failed: %v", err)
		c.queueLocked(event.TopicPersistFailed, EventPayload{Error: err.Error()})
		return fmt.Errorf("persist console %s: %w", c.id, err)
	}
	c.dirty.markPersisted(content)
	c.queueLocked(event.TopicPersisted, EventPayload{})
	c.log.Debug("persisted %d bytes", len(content))
	return nil
}

// MarkPersisted sets content as the persisted baseline, for content stored
// by someone else.
func (c *Console) MarkPersisted(content string) {
	c.mu.Lock()
	defer c.unlock()
	c.dirty.markPersisted(content)
}

// HasUnsavedChanges reports whether the content differs from the last
// persisted content.
func (c *Console) HasUnsavedChanges() bool {
	return c.dirty.dirty()
}

// Content returns the current content.
func (c *Console) Content() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.content
}

// CanUndo reports whether Undo would succeed.
func (c *Console) CanUndo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canUndoLocked()
}

// CanRedo reports whether Redo would succeed.
func (c *Console) CanRedo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canRedoLocked()
}

// burstChangedLocked reports whether flushing would add a version.
func (c *Console) burstChangedLocked() bool {
	if !c.burst {
		return false
	}
	cur, ok := c.history.Current()
	return !ok || cur.Content != c.content
}

func (c *Console) canUndoLocked() bool {
	if c.closed || c.session.IsPreviewing() {
		return false
	}
	return c.burstChangedLocked() || c.history.CanUndo()
}

func (c *Console) canRedoLocked() bool {
	if c.closed || c.session.IsPreviewing() {
		return false
	}
	return !c.burstChangedLocked() && c.history.CanRedo()
}

// History returns the version list, oldest first.
func (c *Console) History() []history.Info {
	return c.history.Infos()
}

// Version returns the version with the given id.
func (c *Console) Version(id string) (history.Entry, bool) {
	return c.history.Get(id)
}

// View returns the presentation state.
func (c *Console) View() preview.View {
	return c.session.View()
}

// Status is a snapshot of a console for presentation layers.
type Status struct {
	ConsoleID string         `json:"console_id"`
	Content   string         `json:"content"`
	CanUndo   bool           `json:"can_undo"`
	CanRedo   bool           `json:"can_redo"`
	Dirty     bool           `json:"dirty"`
	Preview   preview.Status `json:"preview"`
	Pending   bool           `json:"pending_edits"`
	Versions  int            `json:"versions"`
	CurrentID string         `json:"current_version,omitempty"`
	View      preview.View   `json:"-"`
}

// Status returns a snapshot of the console.
func (c *Console) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		ConsoleID: c.id,
		Content:   c.content,
		CanUndo:   c.canUndoLocked(),
		CanRedo:   c.canRedoLocked(),
		Dirty:     c.dirty.dirty(),
		Preview:   c.session.Status(),
		Pending:   c.burst,
		Versions:  c.history.Len(),
		View:      c.session.View(),
	}
	if cur, ok := c.history.Current(); ok {
		st.CurrentID = cur.ID
	}
	return st
}

// SetDebounce changes the quiet period for later bursts.
func (c *Console) SetDebounce(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interval = d
}

// SetMaxVersions changes the version cap.
func (c *Console) SetMaxVersions(n int) {
	c.history.SetMaxEntries(n)
}

// Close rejects any pending suggestion, stops the debounce timer and clears
// the history. Closing twice is a no-op.
func (c *Console) Close() {
	c.mu.Lock()
	defer c.unlock()

	if c.closed {
		return
	}
	if c.session.Reject() {
		c.queueLocked(event.TopicPreviewRejected, EventPayload{})
	}
	c.debounce.cancel()
	c.burst = false
	c.suspended = false
	c.history.Clear()
	c.closed = true
	c.queueLocked(event.TopicConsoleClosed, EventPayload{})
	c.log.Debug("closed")
}

// IsClosed reports whether Close has been called.
func (c *Console) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
