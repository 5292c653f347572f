package service

import (
	"emath_backend/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
)

func standing(id uint, score float64, cumtime uint) model.ContestParticipation {
	p := model.ContestParticipation{Score: score, Cumtime: cumtime}
	p.ID = id
	return p
}

func TestSortAndRank(t *testing.T) {
	ps := []model.ContestParticipation{
		standing(1, 90, 100),
		standing(2, 90, 50),
		standing(3, 70, 10),
	}
	SortParticipations(ps)

	assert.Equal(t, uint(2), ps[0].ID)
	assert.Equal(t, uint(1), ps[1].ID)
	assert.Equal(t, uint(3), ps[2].ID)

	rows := []RankingRow{
		{Score: 90, Cumtime: 50},
		{Score: 90, Cumtime: 50},
		{Score: 70, Cumtime: 10},
	}
	AssignRanks(rows)
	assert.Equal(t, []string{"1", "1", "3"}, []string{rows[0].Rank, rows[1].Rank, rows[2].Rank})
}

func TestSortDisqualifiedLast(t *testing.T) {
	dq := standing(1, 100, 0)
	dq.IsDisqualified = true
	ps := []model.ContestParticipation{dq, standing(2, 10, 500)}
	SortParticipations(ps)
	assert.Equal(t, uint(2), ps[0].ID)
	assert.Equal(t, uint(1), ps[1].ID)
}

func TestSortTiebreaker(t *testing.T) {
	a := standing(1, 50, 60)
	a.Tiebreaker = 2
	b := standing(2, 50, 60)
	b.Tiebreaker = 1
	ps := []model.ContestParticipation{a, b}
	SortParticipations(ps)
	assert.Equal(t, uint(2), ps[0].ID)

	rows := []RankingRow{{Score: 50, Cumtime: 60, Tiebreaker: 1}, {Score: 50, Cumtime: 60, Tiebreaker: 2}}
	AssignRanks(rows)
	assert.Equal(t, "1", rows[0].Rank)
	assert.Equal(t, "2", rows[1].Rank)
}
