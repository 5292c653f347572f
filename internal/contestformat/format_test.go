package contestformat

import (
	"emath_backend/internal/model"
	"emath_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var contestStart = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func uintPtr(v uint) *uint { return &v }

func testContest(precision int) *model.Contest {
	return &model.Contest{
		Key:             "spring",
		StartTime:       contestStart,
		EndTime:         contestStart.Add(2 * time.Hour),
		PointsPrecision: precision,
	}
}

func contestProblems(points ...int) []model.ContestProblem {
	out := make([]model.ContestProblem, len(points))
	for i, p := range points {
		out[i] = model.ContestProblem{Points: p}
		out[i].ID = uint(i + 1)
	}
	return out
}

func graded(points float64, at time.Time, statuses ...bool) model.Submission {
	s := model.Submission{Points: points, Date: at, Result: model.ResultWrongAnswer}
	done := at
	s.Time = &done
	for i, st := range statuses {
		s.Problems = append(s.Problems, model.SubmissionProblem{ContestProblemID: uintPtr(uint(i + 1)), Result: st})
	}
	return s
}

func TestDefaultFormatScoresBestSubmission(t *testing.T) {
	contest := testContest(3)
	f, err := New(contest)
	require.NoError(t, err)

	live := &model.ContestParticipation{Virtual: model.ParticipationLive}
	res, err := f.UpdateParticipation(Input{
		Contest:       contest,
		Participation: live,
		Problems:      contestProblems(1, 1, 1),
		Submissions: []model.Submission{
			graded(1, contestStart.Add(10*time.Minute), true, false, false),
			graded(2, contestStart.Add(30*time.Minute), true, true, false),
			graded(2, contestStart.Add(50*time.Minute), true, false, true),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 66.667, res.Score)
	assert.Equal(t, uint(30*60), res.Cumtime)
	assert.Equal(t, 0.0, res.Tiebreaker)
	assert.Equal(t, FormatData{"1": {true}, "2": {true}, "3": {false}}, res.FormatData)
}

func TestDefaultFormatVirtualUsesRealStart(t *testing.T) {
	contest := testContest(2)
	f, err := New(contest)
	require.NoError(t, err)

	realStart := contestStart.Add(48 * time.Hour)
	virtual := &model.ContestParticipation{Virtual: 1, RealStart: realStart}
	res, err := f.UpdateParticipation(Input{
		Contest:       contest,
		Participation: virtual,
		Problems:      contestProblems(3),
		Submissions:   []model.Submission{graded(3, realStart.Add(90*time.Second), true)},
	})
	require.NoError(t, err)
	assert.Equal(t, 100.0, res.Score)
	assert.Equal(t, uint(90), res.Cumtime)
}

func TestDefaultFormatNoSubmissions(t *testing.T) {
	contest := testContest(3)
	f, err := New(contest)
	require.NoError(t, err)

	res, err := f.UpdateParticipation(Input{
		Contest:       contest,
		Participation: &model.ContestParticipation{},
		Problems:      contestProblems(1, 2),
	})
	require.NoError(t, err)
	assert.Zero(t, res.Score)
	assert.Zero(t, res.Cumtime)
	assert.Empty(t, res.FormatData)
}

func TestCumtimeClampsNegative(t *testing.T) {
	assert.Equal(t, uint(0), Cumtime(contestStart, contestStart.Add(-time.Minute)))
}

func TestAbsoluteFormat(t *testing.T) {
	contest := testContest(1)
	contest.FormatName = AbsoluteName
	f, err := New(contest)
	require.NoError(t, err)
	assert.Equal(t, AbsoluteName, f.Name())

	res, err := f.UpdateParticipation(Input{
		Contest:       contest,
		Participation: &model.ContestParticipation{},
		Problems:      contestProblems(5, 5),
		Submissions:   []model.Submission{graded(5, contestStart.Add(time.Minute), true, false)},
	})
	require.NoError(t, err)
	assert.Equal(t, 5.0, res.Score)
}

func TestProblemBreakdown(t *testing.T) {
	contest := testContest(3)
	f, err := New(contest)
	require.NoError(t, err)

	p := &model.ContestParticipation{FormatData: `{"2":{"status":true}}`}
	got := f.ProblemBreakdown(p, contestProblems(1, 1, 1))
	require.Len(t, got, 3)
	assert.Nil(t, got[0])
	assert.True(t, got[1].Status)
	assert.Nil(t, got[2])
}

func TestRegistry(t *testing.T) {
	_, err := New(&model.Contest{FormatName: "icpc"})
	assert.ErrorIs(t, err, util.ErrUnknownContestFormat)

	assert.Panics(t, func() {
		Register(DefaultName, "again", func(c *model.Contest) Format { return &DefaultFormat{contest: c} })
	})

	choices := Choices()
	require.Len(t, choices, 2)
	assert.Equal(t, AbsoluteName, choices[0].Key)
	assert.Equal(t, DefaultName, choices[1].Key)
}

func TestLabels(t *testing.T) {
	contest := testContest(3)
	f, err := New(contest)
	require.NoError(t, err)

	labels, err := Labels(contest, f, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, labels)

	contest.ProblemLabelScript = `function(n) return string.char(65 + n) end`
	labels, err = Labels(contest, f, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, labels)
}

func TestLabelScriptErrors(t *testing.T) {
	_, err := CompileLabelScript(`function(n return end`)
	assert.ErrorIs(t, err, util.ErrInvalidLabelScript)

	labeler, err := CompileLabelScript(`function(n) return n end`)
	require.NoError(t, err)
	_, err = labeler(0)
	assert.ErrorIs(t, err, util.ErrInvalidLabelScript)

	labeler, err = CompileLabelScript(`42`)
	require.NoError(t, err)
	_, err = labeler(0)
	assert.ErrorIs(t, err, util.ErrInvalidLabelScript)
}
