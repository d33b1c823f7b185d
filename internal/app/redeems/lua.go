package redeems

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// LoadLuaScripts registers every *.lua file in dir as a custom action under
// the file's base name. Scripts get the redemption as globals plus a small
// host API; whatever they pass to reply() becomes the result message.
func LoadLuaScripts(logger *slog.Logger, dir string, registry *Registry, ai AIClient, osc OSCSender) (int, error) {
	if dir == "" {
		return 0, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read scripts dir: %w", err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".lua") {
			continue
		}

		source, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return loaded, fmt.Errorf("failed to read script %s: %w", entry.Name(), err)
		}

		name := strings.TrimSuffix(entry.Name(), ".lua")
		registry.RegisterCustom(name, &luaHandler{
			logger: logger.With("script", name),
			source: string(source),
			ai:     ai,
			osc:    osc,
		})
		logger.Info("registered lua action", "name", name)
		loaded++
	}

	return loaded, nil
}

// luaHandler runs its script in a fresh state per redemption, so scripts
// need no locking and a crashed run cannot poison the next one.
type luaHandler struct {
	logger *slog.Logger
	source string

	ai  AIClient
	osc OSCSender
}

func (h *luaHandler) Handle(ctx context.Context, r *Redemption) RedemptionResult {
	luaState := lua.NewState(lua.Options{
		SkipOpenLibs:        true,
		IncludeGoStackTrace: true,
	})
	defer luaState.Close()

	luaState.SetContext(ctx)

	var reply string

	luaState.SetGlobal("user", lua.LString(r.UserName))
	luaState.SetGlobal("user_id", lua.LString(r.UserID))
	luaState.SetGlobal("input", lua.LString(r.UserInput))
	luaState.SetGlobal("queue_number", lua.LNumber(r.QueueNumber))
	luaState.SetGlobal("reply", luaState.NewFunction(func(l *lua.LState) int {
		reply = l.Get(1).String()
		return 0
	}))
	luaState.SetGlobal("ai", h.luaAi(ctx, luaState, r.UserName))
	luaState.SetGlobal("osc", h.luaOsc(luaState))

	if err := luaState.DoString(h.source); err != nil {
		h.logger.Error("lua script failed", "err", err)
		return RedemptionResult{
			Success: false,
			Message: "script error: " + err.Error(),
		}
	}

	return RedemptionResult{Success: true, Message: reply}
}

func (h *luaHandler) luaAi(ctx context.Context, luaState *lua.LState, userName string) *lua.LFunction {
	return luaState.NewFunction(func(l *lua.LState) int {
		request := l.Get(1).String()

		if h.ai == nil {
			l.Push(lua.LString("ai is not configured"))
			return 1
		}

		response, err := h.ai.Generate(ctx, userName, request, false)
		if err != nil {
			l.Push(lua.LString("ai request error: " + err.Error()))
			return 1
		}

		l.Push(lua.LString(response))
		return 1
	})
}

func (h *luaHandler) luaOsc(luaState *lua.LState) *lua.LFunction {
	return luaState.NewFunction(func(l *lua.LState) int {
		endpoint := l.Get(1).String()
		value := l.Get(2)

		if h.osc == nil {
			l.Push(lua.LString("osc is not configured"))
			return 1
		}

		var raw any
		switch v := value.(type) {
		case lua.LBool:
			raw = bool(v)
		case lua.LNumber:
			raw = float32(v)
		default:
			raw = value.String()
		}

		if err := h.osc.Send(endpoint, raw); err != nil {
			l.Push(lua.LString("osc send error: " + err.Error()))
			return 1
		}

		return 0
	})
}
