package contestformat

import (
	"emath_backend/internal/model"
	"emath_backend/internal/util"
	"fmt"
	"sort"
	"sync"
)

const DefaultName = "default"

type Factory func(contest *model.Contest) Format

type registration struct {
	displayName string
	factory     Factory
}

var (
	mu      sync.RWMutex
	formats = map[string]registration{}
)

// Register 注册计分格式，重复注册直接 panic
func Register(name, displayName string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := formats[name]; exists {
		panic(fmt.Sprintf("contestformat: format %q already registered", name))
	}
	formats[name] = registration{displayName: displayName, factory: factory}
}

// New 为比赛创建计分格式，名称为空时使用 default
func New(contest *model.Contest) (Format, error) {
	name := contest.FormatName
	if name == "" {
		name = DefaultName
	}
	mu.RLock()
	reg, ok := formats[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", util.ErrUnknownContestFormat, name)
	}
	return reg.factory(contest), nil
}

func Exists(name string) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := formats[name]
	return ok
}

type Choice struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Choices 按名称排序
func Choices() []Choice {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Choice, 0, len(formats))
	for key, reg := range formats {
		out = append(out, Choice{Key: key, Name: reg.displayName})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
