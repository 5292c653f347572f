package contestformat

import (
	"emath_backend/internal/model"
	"strconv"
)

func init() {
	Register(DefaultName, "Default", func(c *model.Contest) Format { return &DefaultFormat{contest: c} })
}

// DefaultFormat 成绩为最佳提交得分占满分的百分比
type DefaultFormat struct {
	contest *model.Contest
}

func (f *DefaultFormat) Name() string {
	return DefaultName
}

func (f *DefaultFormat) UpdateParticipation(in Input) (Result, error) {
	return f.update(in, func(points, maxPoints float64) float64 {
		return Round(points*100/maxPoints, f.contest.PointsPrecision)
	})
}

func (f *DefaultFormat) update(in Input, score func(points, maxPoints float64) float64) (Result, error) {
	maxPoints := MaxPoints(in.Problems)
	best := BestSubmission(in.Submissions)
	if best == nil || maxPoints == 0 {
		return Result{FormatData: FormatData{}}, nil
	}

	return Result{
		Score:      score(best.Points, maxPoints),
		Cumtime:    Cumtime(in.Participation.Start(in.Contest), best.CompletedAt()),
		Tiebreaker: 0,
		FormatData: formatDataFor(best),
	}, nil
}

func (f *DefaultFormat) ProblemBreakdown(p *model.ContestParticipation, problems []model.ContestProblem) []*ProblemStatus {
	return breakdown(p, problems)
}

func (f *DefaultFormat) LabelForProblem(index int) string {
	return strconv.Itoa(index + 1)
}
