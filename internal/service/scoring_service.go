package service

import (
	"context"
	"emath_backend/internal/contestformat"
	"emath_backend/internal/model"
	"emath_backend/internal/repository"
	"emath_backend/pkg/logger"
	"emath_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// RankingNotifier 排行榜变化时推送通知
type RankingNotifier interface {
	NotifyRankingChanged(contestID uint, contestKey string)
}

type ScoringService struct {
	ContestRepo       *repository.ContestRepository
	ParticipationRepo *repository.ParticipationRepository
	SubmissionRepo    *repository.SubmissionRepository
	Judge             *JudgeService
	Cache             ScoreboardCache
	Notifier          RankingNotifier
}

func NewScoringService(
	contestRepo *repository.ContestRepository,
	participationRepo *repository.ParticipationRepository,
	submissionRepo *repository.SubmissionRepository,
	judge *JudgeService,
	cache ScoreboardCache,
	notifier RankingNotifier,
) *ScoringService {
	if cache == nil {
		cache = NoopScoreboardCache{}
	}
	return &ScoringService{
		ContestRepo:       contestRepo,
		ParticipationRepo: participationRepo,
		SubmissionRepo:    submissionRepo,
		Judge:             judge,
		Cache:             cache,
		Notifier:          notifier,
	}
}

// Recompute 重新计算一个参赛记录的成绩并使排行榜缓存失效
func (s *ScoringService) Recompute(ctx context.Context, contest *model.Contest, p *model.ContestParticipation) error {
	problems, err := s.ContestRepo.Problems(contest.ID)
	if err != nil {
		return err
	}
	if err := s.recompute(ctx, contest, p, problems); err != nil {
		return err
	}
	s.RankingChanged(ctx, contest)
	return nil
}

// RecomputeContest 重新计算比赛的全部参赛记录
func (s *ScoringService) RecomputeContest(ctx context.Context, contest *model.Contest) error {
	ctx, span := tracing.StartSpan(ctx, "contest.recompute", attribute.String("contest.key", contest.Key))
	defer span.End()

	problems, err := s.ContestRepo.Problems(contest.ID)
	if err != nil {
		return err
	}
	ps, err := s.ParticipationRepo.ListByContest(contest.ID)
	if err != nil {
		return err
	}
	for i := range ps {
		if err := s.recompute(ctx, contest, &ps[i], problems); err != nil {
			return err
		}
	}
	logger.Log.Info("Contest recomputed", zap.String("contest", contest.Key), zap.Int("participations", len(ps)))
	s.RankingChanged(ctx, contest)
	return nil
}

func (s *ScoringService) recompute(ctx context.Context, contest *model.Contest, p *model.ContestParticipation, problems []model.ContestProblem) error {
	ctx, span := tracing.StartSpan(ctx, "participation.recompute", attribute.Int("participation.id", int(p.ID)))
	defer span.End()

	format, err := contestformat.New(contest)
	if err != nil {
		return err
	}
	subs, err := s.SubmissionRepo.GradedByParticipation(p.ID)
	if err != nil {
		return err
	}

	// 题目分值变化后旧的评分已过期
	maxPoints := contestformat.MaxPoints(problems)
	for i := range subs {
		if subs[i].MaxPoints != maxPoints {
			if err := s.Judge.Judge(ctx, &subs[i]); err != nil {
				return err
			}
		}
	}

	res, err := format.UpdateParticipation(contestformat.Input{
		Contest:       contest,
		Participation: p,
		Problems:      problems,
		Submissions:   subs,
	})
	if err != nil {
		return err
	}
	data, err := res.FormatData.Encode()
	if err != nil {
		return err
	}

	p.Score = res.Score
	p.Cumtime = res.Cumtime
	p.Tiebreaker = res.Tiebreaker
	p.FormatData = data
	if p.IsDisqualified {
		p.Score = model.DisqualifiedScore
	}
	return s.ParticipationRepo.Save(p)
}

// RankingChanged 使缓存失效并通知排行榜订阅者
func (s *ScoringService) RankingChanged(ctx context.Context, contest *model.Contest) {
	s.Cache.Invalidate(ctx, contest.ID)
	if s.Notifier != nil {
		s.Notifier.NotifyRankingChanged(contest.ID, contest.Key)
	}
}
