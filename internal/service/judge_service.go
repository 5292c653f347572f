package service

import (
	"context"
	"emath_backend/internal/contestformat"
	"emath_backend/internal/model"
	"emath_backend/internal/repository"
	"emath_backend/internal/util"
	"emath_backend/pkg/logger"
	"emath_backend/pkg/monitoring"
	"emath_backend/pkg/tracing"
	"fmt"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type JudgeService struct {
	SubmissionRepo *repository.SubmissionRepository
	ContestRepo    *repository.ContestRepository
	PracticeRepo   *repository.PracticeRepository
}

func NewJudgeService(
	submissionRepo *repository.SubmissionRepository,
	contestRepo *repository.ContestRepository,
	practiceRepo *repository.PracticeRepository,
) *JudgeService {
	return &JudgeService{
		SubmissionRepo: submissionRepo,
		ContestRepo:    contestRepo,
		PracticeRepo:   practiceRepo,
	}
}

// NormalizeAnswer 去除首尾空白、合并内部空白并转为小写
func NormalizeAnswer(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// GradeAnswer 按当前答案判定学生作答
func GradeAnswer(problem *model.Problem, output string) (bool, error) {
	correct := problem.CorrectAnswers()
	if len(correct) != 1 {
		return false, fmt.Errorf("%w: problem %s has %d accepted answers", util.ErrInvalidAnswerKey, problem.Code, len(correct))
	}
	answer := correct[0]

	switch problem.AnswerType {
	case model.AnswerFill:
		return NormalizeAnswer(output) == NormalizeAnswer(answer.Description), nil
	default:
		out := strings.TrimSpace(output)
		if out == strconv.FormatUint(uint64(answer.ID), 10) {
			return true, nil
		}
		return NormalizeAnswer(out) == NormalizeAnswer(answer.Description), nil
	}
}

type gradedProblem struct {
	problem *model.Problem
	points  int
}

// Judge 重新评分并保存，重复调用结果一致
func (s *JudgeService) Judge(ctx context.Context, sub *model.Submission) error {
	_, span := tracing.StartSpan(ctx, "submission.judge", attribute.Int("submission.id", int(sub.ID)))
	defer span.End()

	var (
		lookup    func(sp *model.SubmissionProblem) *gradedProblem
		maxPoints float64
	)

	switch {
	case sub.ContestID != nil:
		problems, err := s.ContestRepo.Problems(*sub.ContestID)
		if err != nil {
			return err
		}
		maxPoints = contestformat.MaxPoints(problems)
		byID := make(map[uint]*gradedProblem, len(problems))
		for i := range problems {
			byID[problems[i].ID] = &gradedProblem{problem: problems[i].Problem, points: problems[i].Points}
		}
		lookup = func(sp *model.SubmissionProblem) *gradedProblem {
			if sp.ContestProblemID == nil {
				return nil
			}
			return byID[*sp.ContestProblemID]
		}
	case sub.PracticeID != nil:
		practice, err := s.PracticeRepo.FindByID(*sub.PracticeID)
		if err != nil {
			return util.TranslateDBError(err)
		}
		byID := make(map[uint]*gradedProblem, len(practice.Problems))
		for i := range practice.Problems {
			pp := practice.Problems[i]
			maxPoints += float64(pp.Points)
			byID[pp.ID] = &gradedProblem{problem: pp.Problem, points: pp.Points}
		}
		lookup = func(sp *model.SubmissionProblem) *gradedProblem {
			if sp.PracticeProblemID == nil {
				return nil
			}
			return byID[*sp.PracticeProblemID]
		}
	default:
		return fmt.Errorf("%w: submission %d belongs to neither a contest nor a practice", util.ErrValidation, sub.ID)
	}

	points := 0.0
	for i := range sub.Problems {
		sp := &sub.Problems[i]
		gp := lookup(sp)
		awarded := 0.0
		sp.Result = false
		if gp != nil && gp.problem != nil {
			ok, err := GradeAnswer(gp.problem, sp.Output)
			if err != nil {
				logger.Log.Error("Answer key violated, grading as wrong",
					zap.Uint("submissionID", sub.ID),
					zap.String("problem", gp.problem.Code),
					zap.Error(err),
				)
			}
			if ok {
				sp.Result = true
				awarded = float64(gp.points)
			}
		}
		sp.Points = &awarded
		points += awarded
	}

	sub.Points = points
	sub.MaxPoints = maxPoints
	if points == maxPoints {
		sub.Result = model.ResultAccepted
	} else {
		sub.Result = model.ResultWrongAnswer
	}

	if err := s.SubmissionRepo.SaveGrade(sub); err != nil {
		return err
	}
	monitoring.SubmissionsJudged.WithLabelValues(sub.Result).Inc()
	return nil
}
