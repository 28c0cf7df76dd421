package loader

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/Shopify/go-lua"

	"github.com/3s-rg-codes/fnbridge/pkg/function"
)

const (
	luaRequestResponseGlobal = "handle"
	luaResultGlobal          = "fn"
)

// luaModule hosts a Lua script. A script defining handle(req, res) is request/response
// style, one defining fn(req) is result style. A lua.State is not safe for concurrent use,
// so calls into the script are serialized.
type luaModule struct {
	mu         sync.Mutex
	state      *lua.State
	name       string
	convention function.Convention
	closed     bool
}

var errLuaClosed = errors.New("lua module closed")

func openLua(wd *function.WorkDir, name string) (*luaModule, error) {
	l := lua.NewState()
	lua.OpenLibraries(l)
	registerWorkDir(l, wd)

	if err := lua.LoadFile(l, wd.Resolve(name), ""); err != nil {
		return nil, fmt.Errorf("load lua: %w", err)
	}
	if err := l.ProtectedCall(0, 0, 0); err != nil {
		return nil, fmt.Errorf("run lua: %w", err)
	}

	m := &luaModule{state: l, name: name}
	switch {
	case hasGlobalFunction(l, luaRequestResponseGlobal):
		m.convention = function.RequestResponseStyle
	case hasGlobalFunction(l, luaResultGlobal):
		m.convention = function.ResultReturningStyle
	default:
		return nil, fmt.Errorf("script defines neither %s(req, res) nor %s(req)", luaRequestResponseGlobal, luaResultGlobal)
	}
	return m, nil
}

func (m *luaModule) entry() any {
	if m.convention == function.RequestResponseStyle {
		return function.RequestResponseFunc(m.handle)
	}
	return function.ResultFunc(m.call)
}

func (m *luaModule) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.state = nil
	return nil
}

func (m *luaModule) call(_ context.Context, req *function.Request) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, errLuaClosed
	}

	l := m.state
	top := l.Top()
	defer l.SetTop(top)

	l.Global(luaResultGlobal)
	pushRequest(l, req)
	if err := l.ProtectedCall(1, 1, 0); err != nil {
		return nil, fmt.Errorf("%s: %w", m.name, err)
	}
	v, err := toGo(l, -1)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.name, err)
	}
	return v, nil
}

func (m *luaModule) handle(_ context.Context, req *function.Request, res function.ResponseWriter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errLuaClosed
	}

	l := m.state
	top := l.Top()
	defer l.SetTop(top)

	var writeErr error
	l.Global(luaRequestResponseGlobal)
	pushRequest(l, req)
	pushResponse(l, res, &writeErr)
	if err := l.ProtectedCall(2, 0, 0); err != nil {
		return fmt.Errorf("%s: %w", m.name, err)
	}
	return writeErr
}

func hasGlobalFunction(l *lua.State, name string) bool {
	l.Global(name)
	defer l.Pop(1)
	return l.IsFunction(-1)
}

func registerWorkDir(l *lua.State, wd *function.WorkDir) {
	l.NewTable()
	l.PushString(wd.Path())
	l.SetField(-2, "path")
	l.PushGoFunction(func(l *lua.State) int {
		data, err := wd.ReadFile(lua.CheckString(l, lastArg(l)))
		if err != nil {
			l.PushNil()
			l.PushString(err.Error())
			return 2
		}
		l.PushString(string(data))
		return 1
	})
	l.SetField(-2, "read")
	l.SetGlobal("workdir")
}

func pushRequest(l *lua.State, req *function.Request) {
	l.NewTable()
	l.PushString(req.Id)
	l.SetField(-2, "id")
	l.PushString(req.Method)
	l.SetField(-2, "method")
	l.PushString(req.Path)
	l.SetField(-2, "path")
	l.PushString(req.Data)
	l.SetField(-2, "data")
	l.NewTable()
	for k, v := range req.Headers {
		l.PushString(v)
		l.SetField(-2, k)
	}
	l.SetField(-2, "headers")
}

// pushResponse exposes the writer as a table of functions. send writes and ends,
// mirroring express' res.send. Both res.f(x) and res:f(x) call forms work.
func pushResponse(l *lua.State, res function.ResponseWriter, writeErr *error) {
	record := func(err error) {
		if err != nil && *writeErr == nil {
			*writeErr = err
		}
	}
	l.NewTable()
	l.PushGoFunction(func(l *lua.State) int {
		res.WriteHeader(lua.CheckInteger(l, lastArg(l)))
		return 0
	})
	l.SetField(-2, "status")
	l.PushGoFunction(func(l *lua.State) int {
		n := lastArg(l)
		res.Header().Set(lua.CheckString(l, n-1), lua.CheckString(l, n))
		return 0
	})
	l.SetField(-2, "header")
	l.PushGoFunction(func(l *lua.State) int {
		_, err := res.Write([]byte(lua.CheckString(l, lastArg(l))))
		record(err)
		return 0
	})
	l.SetField(-2, "write")
	l.PushGoFunction(func(l *lua.State) int {
		_, err := res.Write([]byte(lua.CheckString(l, lastArg(l))))
		record(err)
		record(res.End())
		return 0
	})
	l.SetField(-2, "send")
	l.PushGoFunction(func(l *lua.State) int {
		record(res.End())
		return 0
	})
	l.SetField(-2, "finish")
}

func lastArg(l *lua.State) int {
	return l.Top()
}

// maxLuaDepth bounds table nesting in a returned value.
const maxLuaDepth = 100

var (
	errLuaTooDeep = fmt.Errorf("lua value nested deeper than %d tables", maxLuaDepth)
	errLuaCyclic  = errors.New("lua value contains a cyclic table")
	errLuaStack   = errors.New("lua stack exhausted while converting result")
)

// toGo converts the value at index into Go: tables with a sequence part become []any,
// other tables map[string]any. A table reachable from itself is an error; a table shared
// by two branches is converted twice.
func toGo(l *lua.State, index int) (any, error) {
	return convertLua(l, index, make(map[any]bool), 0)
}

func convertLua(l *lua.State, index int, onPath map[any]bool, depth int) (any, error) {
	index = l.AbsIndex(index)
	switch l.TypeOf(index) {
	case lua.TypeNil:
		return nil, nil
	case lua.TypeBoolean:
		return l.ToBoolean(index), nil
	case lua.TypeNumber:
		if n, ok := l.ToInteger(index); ok {
			if f, _ := l.ToNumber(index); f == float64(n) {
				return n, nil
			}
		}
		f, _ := l.ToNumber(index)
		return f, nil
	case lua.TypeString:
		s, _ := l.ToString(index)
		return s, nil
	case lua.TypeTable:
		if depth >= maxLuaDepth {
			return nil, errLuaTooDeep
		}
		id := l.ToValue(index)
		if onPath[id] {
			return nil, errLuaCyclic
		}
		// key and value of Next, or one RawGetInt value
		if !l.CheckStack(2) {
			return nil, errLuaStack
		}
		onPath[id] = true
		defer delete(onPath, id)

		if n := l.RawLength(index); n > 0 {
			seq := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				l.RawGetInt(index, i)
				v, err := convertLua(l, -1, onPath, depth+1)
				l.Pop(1)
				if err != nil {
					return nil, err
				}
				seq = append(seq, v)
			}
			return seq, nil
		}
		m := make(map[string]any)
		l.PushNil()
		for l.Next(index) {
			v, err := convertLua(l, -1, onPath, depth+1)
			if err != nil {
				l.Pop(2)
				return nil, err
			}
			m[tableKey(l, -2)] = v
			l.Pop(1)
		}
		return m, nil
	default:
		return lua.TypeNameOf(l, index), nil
	}
}

// tableKey reads a key without lua.ToString's in-place conversion, which would break Next.
func tableKey(l *lua.State, index int) string {
	if l.TypeOf(index) == lua.TypeNumber {
		if n, ok := l.ToInteger(index); ok {
			return strconv.Itoa(n)
		}
	}
	if l.TypeOf(index) == lua.TypeString {
		s, _ := l.ToString(index)
		return s
	}
	return lua.TypeNameOf(l, index)
}
