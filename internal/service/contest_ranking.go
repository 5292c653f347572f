package service

import (
	"context"
	"emath_backend/internal/contestformat"
	"emath_backend/internal/model"
	"emath_backend/internal/util"
	"emath_backend/pkg/tracing"
	"sort"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
)

const (
	hiddenRankLabel  = "???"
	virtualRankLabel = "-"
)

// RankingRow 排行榜中的一个参赛记录
type RankingRow struct {
	Rank            string                         `json:"rank"`
	ParticipationID uint                           `json:"participationId"`
	UserID          uint                           `json:"userId"`
	Username        string                         `json:"username"`
	FullName        string                         `json:"fullName"`
	Score           float64                        `json:"score"`
	Cumtime         uint                           `json:"cumtime"`
	Tiebreaker      float64                        `json:"tiebreaker"`
	IsDisqualified  bool                           `json:"isDisqualified"`
	Virtual         int                            `json:"virtual"`
	Problems        []*contestformat.ProblemStatus `json:"problems"`
}

type RankingProblem struct {
	ID     uint   `json:"id"`
	Label  string `json:"label"`
	Code   string `json:"code"`
	Name   string `json:"name"`
	Points int    `json:"points"`
}

type Ranking struct {
	Contest  string           `json:"contest"`
	Full     bool             `json:"full"`
	Problems []RankingProblem `json:"problems"`
	Rows     []RankingRow     `json:"rows"`
}

// SortParticipations 取消资格的排在最后，其余按成绩降序、用时升序、tiebreaker 升序
func SortParticipations(ps []model.ContestParticipation) {
	sort.SliceStable(ps, func(i, j int) bool {
		a, b := &ps[i], &ps[j]
		if a.IsDisqualified != b.IsDisqualified {
			return !a.IsDisqualified
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Cumtime != b.Cumtime {
			return a.Cumtime < b.Cumtime
		}
		return a.Tiebreaker < b.Tiebreaker
	})
}

func sameStanding(a, b *RankingRow) bool {
	return a.Score == b.Score && a.Cumtime == b.Cumtime && a.Tiebreaker == b.Tiebreaker
}

// AssignRanks 并列的行共享名次，下一个名次跳过并列人数（1, 1, 3）
func AssignRanks(rows []RankingRow) {
	for i := range rows {
		if i > 0 && sameStanding(&rows[i-1], &rows[i]) {
			rows[i].Rank = rows[i-1].Rank
			continue
		}
		rows[i].Rank = strconv.Itoa(i + 1)
	}
}

func newRankingRow(p *model.ContestParticipation, format contestformat.Format, problems []model.ContestProblem) RankingRow {
	row := RankingRow{
		ParticipationID: p.ID,
		UserID:          p.UserID,
		Score:           p.Score,
		Cumtime:         p.Cumtime,
		Tiebreaker:      p.Tiebreaker,
		IsDisqualified:  p.IsDisqualified,
		Virtual:         p.Virtual,
		Problems:        format.ProblemBreakdown(p, problems),
	}
	if p.User != nil {
		row.Username = p.User.Username
		row.FullName = p.User.FullName
	}
	return row
}

// BuildRankingRows 排序并编号正式参赛记录
func BuildRankingRows(ps []model.ContestParticipation, format contestformat.Format, problems []model.ContestProblem) []RankingRow {
	SortParticipations(ps)
	rows := make([]RankingRow, 0, len(ps))
	for i := range ps {
		rows = append(rows, newRankingRow(&ps[i], format, problems))
	}
	AssignRanks(rows)
	return rows
}

func (s *ContestService) fullRanking(ctx context.Context, contest *model.Contest, format contestformat.Format, problems []model.ContestProblem) ([]RankingRow, error) {
	cache := s.Scoring.Cache
	if rows, ok := cache.Get(ctx, contest.ID); ok {
		return rows, nil
	}
	ps, err := s.ParticipationRepo.ListLive(contest.ID)
	if err != nil {
		return nil, err
	}
	rows := BuildRankingRows(ps, format, problems)
	cache.Set(ctx, contest.ID, rows)
	return rows, nil
}

// Ranking 比赛排行榜；无权查看完整排行榜时只返回自己的正式成绩，名次显示为 ???
func (s *ContestService) Ranking(ctx context.Context, v *Viewer, key string) (*Ranking, error) {
	ctx, span := tracing.StartSpan(ctx, "contest.ranking", attribute.String("contest.key", key))
	defer span.End()

	contest, err := s.accessibleContest(v, key)
	if err != nil {
		return nil, err
	}
	now := s.now()
	current, err := s.currentParticipation(v)
	if err != nil {
		return nil, err
	}
	live, err := s.liveParticipation(v, contest)
	if err != nil {
		return nil, err
	}
	if !CanSeeOwnScoreboard(v, contest, current, live, now) {
		return nil, util.ErrContestInaccessible
	}

	problems, err := s.ContestRepo.Problems(contest.ID)
	if err != nil {
		return nil, err
	}
	format, err := contestformat.New(contest)
	if err != nil {
		return nil, err
	}
	labels, err := contestformat.Labels(contest, format, len(problems))
	if err != nil {
		return nil, err
	}

	ranking := &Ranking{Contest: contest.Key, Problems: make([]RankingProblem, 0, len(problems))}
	for i, cp := range problems {
		rp := RankingProblem{ID: cp.ID, Label: labels[i], Points: cp.Points}
		if cp.Problem != nil {
			rp.Code = cp.Problem.Code
			rp.Name = cp.Problem.Name
		}
		ranking.Problems = append(ranking.Problems, rp)
	}

	if CanSeeFullScoreboard(v, contest, live, now) {
		ranking.Full = true
		if ranking.Rows, err = s.fullRanking(ctx, contest, format, problems); err != nil {
			return nil, err
		}
	} else {
		ranking.Rows = []RankingRow{}
		if live != nil {
			row := newRankingRow(live, format, problems)
			row.Rank = hiddenRankLabel
			ranking.Rows = append(ranking.Rows, row)
		}
	}

	if current != nil && current.ContestID == contest.ID && !current.Live() {
		row := newRankingRow(current, format, problems)
		row.Rank = virtualRankLabel
		ranking.Rows = append([]RankingRow{row}, ranking.Rows...)
	}
	return ranking, nil
}
