// Package contestformat 比赛计分格式：根据参赛者的已评分提交计算成绩、用时与每题状态。
package contestformat

import (
	"emath_backend/internal/model"
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// ProblemStatus 单题作答状态
type ProblemStatus struct {
	Status bool `json:"status"`
}

// FormatData 以比赛题目 id 为键
type FormatData map[string]ProblemStatus

func ParseFormatData(raw string) (FormatData, error) {
	data := FormatData{}
	if raw == "" {
		return data, nil
	}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, err
	}
	return data, nil
}

func (d FormatData) Encode() (string, error) {
	if d == nil {
		d = FormatData{}
	}
	b, err := json.Marshal(d)
	return string(b), err
}

// Input 重算一个参赛记录所需的数据，Submissions 只包含已评分的提交
type Input struct {
	Contest       *model.Contest
	Participation *model.ContestParticipation
	Problems      []model.ContestProblem
	Submissions   []model.Submission
}

type Result struct {
	Score      float64
	Cumtime    uint
	Tiebreaker float64
	FormatData FormatData
}

type Format interface {
	Name() string
	UpdateParticipation(in Input) (Result, error)
	ProblemBreakdown(p *model.ContestParticipation, problems []model.ContestProblem) []*ProblemStatus
	LabelForProblem(index int) string
}

// MaxPoints 比赛题目分值之和
func MaxPoints(problems []model.ContestProblem) float64 {
	total := 0
	for _, p := range problems {
		total += p.Points
	}
	return float64(total)
}

// BestSubmission 得分最高的提交，同分取最早完成的
func BestSubmission(subs []model.Submission) *model.Submission {
	var best *model.Submission
	for i := range subs {
		s := &subs[i]
		if best == nil || s.Points > best.Points ||
			(s.Points == best.Points && s.CompletedAt().Before(best.CompletedAt())) {
			best = s
		}
	}
	return best
}

// Round 按比赛精度四舍五入
func Round(value float64, precision int) float64 {
	f, _ := decimal.NewFromFloat(value).Round(int32(precision)).Float64()
	return f
}

// Cumtime 从参赛开始到 t 的秒数，不小于 0
func Cumtime(start, t time.Time) uint {
	d := t.Sub(start)
	if d < 0 {
		return 0
	}
	return uint(d / time.Second)
}

func formatDataFor(sub *model.Submission) FormatData {
	data := FormatData{}
	for _, sp := range sub.Problems {
		if sp.ContestProblemID == nil {
			continue
		}
		data[strconv.FormatUint(uint64(*sp.ContestProblemID), 10)] = ProblemStatus{Status: sp.Result}
	}
	return data
}

func breakdown(p *model.ContestParticipation, problems []model.ContestProblem) []*ProblemStatus {
	data, err := ParseFormatData(p.FormatData)
	out := make([]*ProblemStatus, len(problems))
	if err != nil {
		return out
	}
	for i, cp := range problems {
		if st, ok := data[strconv.FormatUint(uint64(cp.ID), 10)]; ok {
			out[i] = &st
		}
	}
	return out
}
