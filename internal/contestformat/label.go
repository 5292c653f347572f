package contestformat

import (
	"context"
	"emath_backend/internal/model"
	"emath_backend/internal/util"
	"fmt"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

const labelScriptTimeout = 100 * time.Millisecond

// Labeler 根据题目下标（从 0 开始）生成题号
type Labeler func(index int) (string, error)

// CompileLabelScript 编译形如 `function(n) return tostring(n + 1) end` 的 Lua 表达式
func CompileLabelScript(script string) (Labeler, error) {
	chunk, err := parse.Parse(strings.NewReader("return "+script), "problem_label")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrInvalidLabelScript, err)
	}
	proto, err := lua.Compile(chunk, "problem_label")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrInvalidLabelScript, err)
	}

	return func(index int) (string, error) {
		L := newSandbox()
		defer L.Close()

		ctx, cancel := context.WithTimeout(context.Background(), labelScriptTimeout)
		defer cancel()
		L.SetContext(ctx)

		L.Push(L.NewFunctionFromProto(proto))
		if err := L.PCall(0, 1, nil); err != nil {
			return "", fmt.Errorf("%w: %v", util.ErrInvalidLabelScript, err)
		}
		fn, ok := L.Get(-1).(*lua.LFunction)
		L.Pop(1)
		if !ok {
			return "", fmt.Errorf("%w: script must evaluate to a function", util.ErrInvalidLabelScript)
		}

		if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, lua.LNumber(index)); err != nil {
			return "", fmt.Errorf("%w: %v", util.ErrInvalidLabelScript, err)
		}
		ret := L.Get(-1)
		L.Pop(1)
		label, ok := ret.(lua.LString)
		if !ok {
			return "", fmt.Errorf("%w: label must be a string, got %s", util.ErrInvalidLabelScript, ret.Type())
		}
		return string(label), nil
	}, nil
}

// newSandbox 只开放 base/string/math/table
func newSandbox() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
		{lua.TabLibName, lua.OpenTable},
	} {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}

// Labels 比赛题目的显示题号，自定义脚本优先于计分格式
func Labels(contest *model.Contest, format Format, count int) ([]string, error) {
	labels := make([]string, count)
	if strings.TrimSpace(contest.ProblemLabelScript) == "" {
		for i := range labels {
			labels[i] = format.LabelForProblem(i)
		}
		return labels, nil
	}

	labeler, err := CompileLabelScript(contest.ProblemLabelScript)
	if err != nil {
		return nil, err
	}
	for i := range labels {
		if labels[i], err = labeler(i); err != nil {
			return nil, err
		}
	}
	return labels, nil
}
