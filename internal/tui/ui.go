package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/querystorm/internal/assist"
	"github.com/dshills/querystorm/internal/console"
	"github.com/dshills/querystorm/internal/engine/patch"
	"github.com/dshills/querystorm/internal/engine/preview"
	"github.com/dshills/querystorm/internal/logging"
)

// DefaultTimeout bounds persist and suggestion calls made from the UI.
const DefaultTimeout = 60 * time.Second

// Config holds the UI's collaborators.
type Config struct {
	Console *console.Console
	Editor  *Editor

	// Producers serves Ctrl-R and Ctrl-G. Optional.
	Producers *assist.Set
	// ScriptProducer and LLMProducer name the producers behind Ctrl-R and
	// Ctrl-G. Empty means the set's default.
	ScriptProducer string
	LLMProducer    string

	Logger  *logging.Logger
	Timeout time.Duration
}

type inputMode uint8

const (
	modeEdit inputMode = iota
	modePrompt
)

// suggestion is posted back to the event loop when a producer finishes.
type suggestion struct {
	producer string
	mod      patch.Modification
	err      error
}

var (
	styleText    = tcell.StyleDefault
	styleStatus  = tcell.StyleDefault.Reverse(true)
	styleAdded   = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleRemoved = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleHunk    = tcell.StyleDefault.Foreground(tcell.ColorTeal)
)

// UI runs the terminal loop for one console.
type UI struct {
	screen  tcell.Screen
	console *console.Console
	editor  *Editor
	cfg     Config
	log     *logging.Logger

	mode           inputMode
	prompt         []rune
	promptProducer string
	busy           bool
	message        string
	top            int
}

// New creates a UI drawing on screen. The screen must already be initialised.
func New(screen tcell.Screen, cfg Config) *UI {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &UI{
		screen:  screen,
		console: cfg.Console,
		editor:  cfg.Editor,
		cfg:     cfg,
		log:     log.WithComponent("tui"),
	}
}

// Run processes events until the user quits, ctx is cancelled or the screen
// is finalised.
func (u *UI) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		_ = u.screen.PostEvent(tcell.NewEventInterrupt(ctx.Err()))
	}()

	u.Draw()
	for {
		ev := u.screen.PollEvent()
		if ev == nil {
			return nil
		}
		if intr, ok := ev.(*tcell.EventInterrupt); ok {
			if err, ok := intr.Data().(error); ok && errors.Is(err, ctx.Err()) {
				return nil
			}
		}
		if u.HandleEvent(ev) {
			return nil
		}
		u.Draw()
	}
}

// Message returns the last status message.
func (u *UI) Message() string {
	return u.message
}

// HandleEvent processes one event and reports whether the UI should quit.
func (u *UI) HandleEvent(ev tcell.Event) (quit bool) {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return u.handleKey(ev)
	case *tcell.EventInterrupt:
		if s, ok := ev.Data().(suggestion); ok {
			u.applySuggestion(s)
		}
	case *tcell.EventResize:
		u.screen.Sync()
	}
	return false
}

func (u *UI) handleKey(ev *tcell.EventKey) bool {
	if ev.Key() == tcell.KeyCtrlQ {
		return true
	}
	if u.mode == modePrompt {
		u.handlePromptKey(ev)
		return false
	}
	if u.console.View().Status() == preview.Previewing {
		u.handlePreviewKey(ev)
		return false
	}

	switch ev.Key() {
	case tcell.KeyCtrlZ:
		u.report(u.console.Undo())
	case tcell.KeyCtrlY:
		u.report(u.console.Redo())
	case tcell.KeyCtrlS:
		u.persist()
	case tcell.KeyCtrlR:
		u.startPrompt(u.cfg.ScriptProducer)
	case tcell.KeyCtrlG:
		u.startPrompt(u.cfg.LLMProducer)
	case tcell.KeyEnter:
		u.editor.Newline()
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		u.editor.Backspace()
	case tcell.KeyDelete:
		u.editor.Delete()
	case tcell.KeyTab:
		u.editor.InsertRune('\t')
	case tcell.KeyLeft:
		u.editor.Move(-1, 0)
	case tcell.KeyRight:
		u.editor.Move(1, 0)
	case tcell.KeyUp:
		u.editor.Move(0, -1)
	case tcell.KeyDown:
		u.editor.Move(0, 1)
	case tcell.KeyHome:
		u.editor.Home()
	case tcell.KeyEnd:
		u.editor.End()
	case tcell.KeyRune:
		u.editor.InsertRune(ev.Rune())
	}
	return false
}

func (u *UI) handlePreviewKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyCtrlA:
		if _, err := u.console.Accept(); err != nil {
			u.message = err.Error()
			return
		}
		u.message = "suggestion accepted"
	case tcell.KeyEscape:
		if err := u.console.Reject(); err != nil {
			u.message = err.Error()
			return
		}
		u.message = "suggestion rejected"
	default:
		u.message = "Ctrl-A accept, Esc reject"
	}
}

func (u *UI) handlePromptKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape:
		u.mode = modeEdit
		u.prompt = nil
		u.message = ""
	case tcell.KeyEnter:
		u.submitPrompt()
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if n := len(u.prompt); n > 0 {
			u.prompt = u.prompt[:n-1]
		}
	case tcell.KeyRune:
		u.prompt = append(u.prompt, ev.Rune())
	}
}

func (u *UI) report(_ string, err error) {
	if err != nil {
		u.message = err.Error()
		return
	}
	u.message = ""
}

func (u *UI) persist() {
	ctx, cancel := context.WithTimeout(context.Background(), u.cfg.Timeout)
	defer cancel()
	if err := u.console.Persist(ctx); err != nil {
		u.message = err.Error()
		return
	}
	u.message = "saved"
}

func (u *UI) startPrompt(producer string) {
	if u.cfg.Producers == nil || u.cfg.Producers.Len() == 0 {
		u.message = "no suggestion producers configured"
		return
	}
	if u.busy {
		u.message = "waiting for the previous suggestion"
		return
	}
	p, err := u.cfg.Producers.Get(producer)
	if err != nil {
		u.message = err.Error()
		return
	}
	u.mode = modePrompt
	u.prompt = nil
	u.promptProducer = p.Name()
	u.message = ""
}

// submitPrompt runs the producer off the event loop and posts the result
// back as an interrupt event.
func (u *UI) submitPrompt() {
	prompt := strings.TrimSpace(string(u.prompt))
	name := u.promptProducer
	u.mode = modeEdit
	u.prompt = nil
	if prompt == "" {
		return
	}

	u.busy = true
	u.message = "asking " + name + "..."
	req := assist.Request{
		ConsoleID: u.console.ID(),
		Content:   u.console.Content(),
		Prompt:    prompt,
	}
	set, timeout, screen := u.cfg.Producers, u.cfg.Timeout, u.screen
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		mod, err := set.Suggest(ctx, name, req)
		_ = screen.PostEvent(tcell.NewEventInterrupt(suggestion{producer: name, mod: mod, err: err}))
	}()
}

func (u *UI) applySuggestion(s suggestion) {
	u.busy = false
	if s.err != nil {
		u.log.Warn("%s failed: %v", s.producer, s.err)
		u.message = s.err.Error()
		return
	}
	if _, err := u.console.ShowDiff(s.mod); err != nil {
		u.message = err.Error()
		return
	}
	u.message = fmt.Sprintf("%s suggests %s", s.producer, s.mod)
}

// Draw renders the current state.
func (u *UI) Draw() {
	u.screen.Clear()
	width, height := u.screen.Size()
	if height < 2 {
		u.screen.Show()
		return
	}
	body := height - 1

	if d, ok := u.console.View().(preview.PreviewingDiff); ok {
		u.screen.HideCursor()
		u.drawDiff(d, width, body)
	} else {
		u.drawEditor(width, body)
	}

	if u.mode == modePrompt {
		text := u.promptProducer + "> " + string(u.prompt)
		u.drawLine(0, body, width, text, styleText)
		u.screen.ShowCursor(len([]rune(text)), body)
	} else {
		u.drawLine(0, body, width, u.statusLine(), styleStatus)
	}
	u.screen.Show()
}

func (u *UI) drawEditor(width, body int) {
	lines := u.editor.Lines()
	line, col := u.editor.Cursor()

	if line < u.top {
		u.top = line
	}
	if line >= u.top+body {
		u.top = line - body + 1
	}
	for row := 0; row < body && u.top+row < len(lines); row++ {
		u.drawLine(0, row, width, lines[u.top+row], styleText)
	}
	if u.mode == modeEdit {
		u.screen.ShowCursor(col, line-u.top)
	}
}

func (u *UI) drawDiff(d preview.PreviewingDiff, width, body int) {
	lines := strings.Split(strings.TrimSuffix(d.Unified(), "\n"), "\n")
	for row := 0; row < body && row < len(lines); row++ {
		l := lines[row]
		style := styleText
		switch {
		case strings.HasPrefix(l, "+++"), strings.HasPrefix(l, "---"):
			style = styleHunk
		case strings.HasPrefix(l, "@@"):
			style = styleHunk
		case strings.HasPrefix(l, "+"):
			style = styleAdded
		case strings.HasPrefix(l, "-"):
			style = styleRemoved
		}
		u.drawLine(0, row, width, l, style)
	}
}

func (u *UI) statusLine() string {
	st := u.console.Status()
	var b strings.Builder
	fmt.Fprintf(&b, " %s  %d versions", st.ConsoleID, st.Versions)
	if st.Dirty {
		b.WriteString("  [+]")
	}
	if st.Pending {
		b.WriteString("  editing")
	}
	if st.Preview == preview.Previewing {
		b.WriteString("  PREVIEW")
	}
	if u.message != "" {
		b.WriteString("  | ")
		b.WriteString(u.message)
	}
	return b.String()
}

// drawLine writes text at row y, padding to width with the same style.
func (u *UI) drawLine(x, y, width int, text string, style tcell.Style) {
	col := x
	for _, r := range text {
		if col >= width {
			break
		}
		if r == '\t' {
			r = ' '
		}
		u.screen.SetContent(col, y, r, nil, style)
		col++
	}
	for ; col < width; col++ {
		u.screen.SetContent(col, y, ' ', nil, style)
	}
}
