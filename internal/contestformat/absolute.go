package contestformat

import "emath_backend/internal/model"

const AbsoluteName = "absolute"

func init() {
	Register(AbsoluteName, "Absolute", func(c *model.Contest) Format {
		return &AbsoluteFormat{DefaultFormat{contest: c}}
	})
}

// AbsoluteFormat 成绩为最佳提交的原始得分
type AbsoluteFormat struct {
	DefaultFormat
}

func (f *AbsoluteFormat) Name() string {
	return AbsoluteName
}

func (f *AbsoluteFormat) UpdateParticipation(in Input) (Result, error) {
	return f.update(in, func(points, _ float64) float64 {
		return Round(points, f.contest.PointsPrecision)
	})
}
