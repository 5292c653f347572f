package service

import (
	"context"
	"emath_backend/internal/model"
	"emath_backend/internal/util"
	"emath_backend/pkg/logger"
	"emath_backend/pkg/monitoring"
	"emath_backend/pkg/tracing"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func participationKind(p *model.ContestParticipation) string {
	switch {
	case p.Live():
		return "live"
	case p.Spectate():
		return "spectate"
	default:
		return "virtual"
	}
}

// Join 加入比赛：比赛结束后创建新的虚拟参赛，进行中则正式参赛（编辑者为观战）
func (s *ContestService) Join(ctx context.Context, v *Viewer, key, accessCode string) (*model.ContestParticipation, error) {
	if !v.Authenticated() {
		return nil, util.ErrUnauthorized
	}
	ctx, span := tracing.StartSpan(ctx, "contest.join",
		attribute.String("contest.key", key),
		attribute.Int("user.id", int(v.UserID)),
	)
	defer span.End()

	contest, err := s.accessibleContest(v, key)
	if err != nil {
		return nil, err
	}

	now := s.now()
	isEditor := contest.IsEditor(v.UserID)
	if !contest.CanJoin(now) && !isEditor {
		return nil, util.ErrContestNotOngoing
	}

	current, err := s.currentParticipation(v)
	if err != nil {
		return nil, err
	}
	if current != nil {
		if current.ContestID == contest.ID {
			return current, nil
		}
		return nil, util.ErrAlreadyInContest
	}

	if !v.IsSuperuser() {
		banned, err := s.ContestRepo.IsBanned(contest.ID, v.UserID)
		if err != nil {
			return nil, err
		}
		if banned {
			return nil, util.ErrBannedFromContest
		}
	}

	requiredAccessCode := !IsContestEditableBy(v, contest) &&
		contest.AccessCode != "" && accessCode != contest.AccessCode

	var p *model.ContestParticipation
	if contest.Ended(now) {
		if requiredAccessCode {
			return nil, util.ErrAccessCodeRequired
		}
		p, err = s.joinVirtual(contest, v.UserID, now)
	} else {
		p, err = s.joinRunning(contest, v.UserID, isEditor, requiredAccessCode, now)
	}
	if err != nil {
		return nil, err
	}

	if err := s.UserRepo.SetCurrentContest(v.UserID, &p.ID); err != nil {
		return nil, err
	}
	if err := s.ContestRepo.RefreshUserCount(contest.ID); err != nil {
		logger.Log.Warn("Refresh contest user count failed", zap.String("contest", contest.Key), zap.Error(err))
	}

	// 新的正式参赛者要出现在排行榜上
	if p.Live() {
		s.Scoring.RankingChanged(ctx, contest)
	}

	kind := participationKind(p)
	span.SetAttributes(attribute.String("participation.kind", kind))
	monitoring.ContestJoins.WithLabelValues(kind).Inc()
	logger.Log.Info("User joined contest",
		zap.String("contest", contest.Key),
		zap.Uint("userID", v.UserID),
		zap.String("kind", kind),
		zap.Int("virtual", p.Virtual),
	)
	return p, nil
}

// joinVirtual 分配下一个虚拟参赛序号，唯一索引冲突时重试
func (s *ContestService) joinVirtual(contest *model.Contest, userID uint, now time.Time) (*model.ContestParticipation, error) {
	retries := s.config().MaxVirtualJoinRetries
	if retries < 1 {
		retries = 1
	}
	for attempt := 0; attempt < retries; attempt++ {
		n, err := s.ParticipationRepo.MaxVirtual(contest.ID, userID)
		if err != nil {
			return nil, err
		}
		virtual := n + 1
		if virtual < 1 {
			virtual = 1
		}

		p := &model.ContestParticipation{
			ContestID: contest.ID,
			UserID:    userID,
			Virtual:   virtual,
			RealStart: now,
		}
		err = s.ParticipationRepo.Create(p)
		if err == nil {
			return p, nil
		}
		if !util.IsDuplicateKey(err) {
			return nil, err
		}
		logger.Log.Debug("Virtual participation number taken, retrying",
			zap.Uint("contestID", contest.ID),
			zap.Uint("userID", userID),
			zap.Int("virtual", virtual),
		)
	}
	return nil, util.ErrTooManyVirtualJoins
}

func (s *ContestService) joinRunning(contest *model.Contest, userID uint, isEditor, requiredAccessCode bool, now time.Time) (*model.ContestParticipation, error) {
	virtual := model.ParticipationLive
	if isEditor {
		virtual = model.ParticipationSpectate
	}

	p, err := s.findParticipation(contest.ID, userID, virtual)
	if err != nil {
		return nil, err
	}
	if p == nil {
		if requiredAccessCode {
			return nil, util.ErrAccessCodeRequired
		}
		return s.getOrCreateParticipation(contest.ID, userID, virtual, now)
	}
	if p.Ended(contest, now) {
		return s.getOrCreateParticipation(contest.ID, userID, model.ParticipationSpectate, now)
	}
	return p, nil
}

// getOrCreateParticipation 并发创建时以已存在的记录为准
func (s *ContestService) getOrCreateParticipation(contestID, userID uint, virtual int, now time.Time) (*model.ContestParticipation, error) {
	p, err := s.findParticipation(contestID, userID, virtual)
	if err != nil || p != nil {
		return p, err
	}
	p = &model.ContestParticipation{
		ContestID: contestID,
		UserID:    userID,
		Virtual:   virtual,
		RealStart: now,
	}
	if err := s.ParticipationRepo.Create(p); err != nil {
		if !util.IsDuplicateKey(err) {
			return nil, err
		}
		existing, findErr := s.findParticipation(contestID, userID, virtual)
		if findErr != nil {
			return nil, findErr
		}
		if existing == nil {
			return nil, util.TranslateDBError(err)
		}
		return existing, nil
	}
	return p, nil
}

// Leave 离开当前比赛，参赛记录保留
func (s *ContestService) Leave(v *Viewer, key string) error {
	if !v.Authenticated() {
		return util.ErrUnauthorized
	}
	contest, err := s.loadContest(key)
	if err != nil {
		return err
	}
	current, err := s.currentParticipation(v)
	if err != nil {
		return err
	}
	if current == nil || current.ContestID != contest.ID {
		return util.ErrNotInContest
	}
	if err := s.UserRepo.ClearCurrentContestIf(v.UserID, current.ID); err != nil {
		return err
	}
	logger.Log.Info("User left contest", zap.String("contest", contest.Key), zap.Uint("userID", v.UserID))
	return nil
}

// RefreshCurrentContest 参赛已结束或比赛不再可访问时清除用户的当前比赛，返回是否清除
func (s *ContestService) RefreshCurrentContest(userID uint) (bool, error) {
	user, err := s.UserRepo.FindWithOrganizations(userID)
	if err != nil {
		return false, util.TranslateDBError(err)
	}
	if user.CurrentContestID == nil {
		return false, nil
	}
	pid := *user.CurrentContestID

	stale := false
	p, err := s.ParticipationRepo.FindByID(pid)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		stale = true
	case err != nil:
		return false, err
	default:
		contest, err := s.ContestRepo.FindByID(p.ContestID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			stale = true
		case err != nil:
			return false, err
		default:
			stale = p.Ended(contest, s.now()) || !IsContestAccessibleBy(NewViewer(user), contest)
		}
	}

	if !stale {
		return false, nil
	}
	if err := s.UserRepo.ClearCurrentContestIf(userID, pid); err != nil {
		return false, err
	}
	return true, nil
}

// SweepCurrentContests 对所有处于比赛中的用户执行 RefreshCurrentContest
func (s *ContestService) SweepCurrentContests() (int, error) {
	users, err := s.UserRepo.FindInContest()
	if err != nil {
		return 0, err
	}
	cleared := 0
	for _, u := range users {
		ok, err := s.RefreshCurrentContest(u.ID)
		if err != nil {
			logger.Log.Error("Refresh current contest failed", zap.Uint("userID", u.ID), zap.Error(err))
			continue
		}
		if ok {
			cleared++
		}
	}
	return cleared, nil
}

// RunSweeper 定时清理过期的当前比赛，ctx 取消后退出
func (s *ContestService) RunSweeper(ctx context.Context) {
	interval := s.config().SweepInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cleared, err := s.SweepCurrentContests()
			if err != nil {
				logger.Log.Error("Current contest sweep failed", zap.Error(err))
			} else if cleared > 0 {
				logger.Log.Info("Current contest sweep", zap.Int("cleared", cleared))
			}
			if next := s.config().SweepInterval(); next != interval {
				interval = next
				ticker.Reset(interval)
			}
		}
	}
}
