package assist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/querystorm/internal/engine/patch"
)

// DefaultScriptTimeout bounds one script run.
const DefaultScriptTimeout = 5 * time.Second

// ScriptEntry is the global function every script must define:
//
//	function suggest(content, prompt, console_id)
//	  return { type = "append", content = "LIMIT 100" }
//	end
//
// Returning a plain string replaces the console content.
const ScriptEntry = "suggest"

// ErrNoEntry is returned when a script does not define ScriptEntry.
var ErrNoEntry = errors.New("script does not define " + ScriptEntry)

// Script runs a Lua function to produce a modification.
//
// Each call gets a fresh interpreter with only the base, table, string and
// math libraries; file loading and module loading are removed.
type Script struct {
	name    string
	source  string
	timeout time.Duration
}

// NewScript creates a producer from Lua source.
func NewScript(name, source string) *Script {
	return &Script{name: name, source: source, timeout: DefaultScriptTimeout}
}

// SetTimeout changes the per-run limit.
func (s *Script) SetTimeout(d time.Duration) {
	if d > 0 {
		s.timeout = d
	}
}

// LoadScripts reads every *.lua file in dir. The producer name is the file
// name without extension. A missing directory yields no scripts.
func LoadScripts(dir string) ([]*Script, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading scripts dir: %w", err)
	}

	var scripts []*Script
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".lua" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading script %s: %w", e.Name(), err)
		}
		name := strings.TrimSuffix(e.Name(), ".lua")
		scripts = append(scripts, NewScript(name, string(data)))
	}
	sort.Slice(scripts, func(i, j int) bool { return scripts[i].name < scripts[j].name })
	return scripts, nil
}

// Name implements Producer.
func (s *Script) Name() string {
	return s.name
}

// Suggest implements Producer.
func (s *Script) Suggest(ctx context.Context, req Request) (mod patch.Modification, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	L := newSandboxedState()
	defer L.Close()
	L.SetContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()

	if err := L.DoString(s.source); err != nil {
		return patch.Modification{}, fmt.Errorf("load %s: %w", s.name, err)
	}

	fn := L.GetGlobal(ScriptEntry)
	if fn.Type() != lua.LTFunction {
		return patch.Modification{}, ErrNoEntry
	}

	err = L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true},
		lua.LString(req.Content), lua.LString(req.Prompt), lua.LString(req.ConsoleID))
	if err != nil {
		return patch.Modification{}, fmt.Errorf("run %s: %w", s.name, err)
	}
	ret := L.Get(-1)
	L.Pop(1)

	return modificationFromLua(ret)
}

func newSandboxedState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}

func modificationFromLua(v lua.LValue) (patch.Modification, error) {
	switch v := v.(type) {
	case lua.LString:
		if v == "" {
			return patch.Modification{}, ErrEmptyResponse
		}
		return patch.Replace(string(v)), nil

	case *lua.LTable:
		kind := v.RawGetString("type")
		if kind == lua.LNil {
			kind = v.RawGetString("kind")
		}
		mod := patch.Modification{
			Kind:    patch.ParseKind(lua.LVAsString(kind)),
			Content: lua.LVAsString(v.RawGetString("content")),
		}

		line, column := v.RawGetString("line"), v.RawGetString("column")
		if pos, ok := v.RawGetString("position").(*lua.LTable); ok {
			line, column = pos.RawGetString("line"), pos.RawGetString("column")
		}
		if n, ok := line.(lua.LNumber); ok && mod.Kind == patch.KindInsert {
			col := 1
			if c, ok := column.(lua.LNumber); ok {
				col = int(c)
			}
			mod.Position = &patch.Position{Line: int(n), Column: col}
		}

		if err := mod.Validate(); err != nil {
			return patch.Modification{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
		return mod, nil

	case *lua.LNilType:
		return patch.Modification{}, ErrEmptyResponse

	default:
		return patch.Modification{}, fmt.Errorf("%w: script returned %s", ErrInvalidResponse, v.Type())
	}
}
