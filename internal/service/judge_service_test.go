package service

import (
	"emath_backend/internal/model"
	"emath_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mcProblem(correct ...bool) *model.Problem {
	p := &model.Problem{Code: "mc1", AnswerType: model.AnswerMultipleChoice}
	for i, c := range correct {
		a := model.Answer{Description: []string{"Hai", "Ba", "Bon", "Nam"}[i], IsCorrect: c}
		a.ID = uint(i + 11)
		p.Answers = append(p.Answers, a)
	}
	return p
}

func TestNormalizeAnswer(t *testing.T) {
	assert.Equal(t, "x = 2", NormalizeAnswer("  X   =\t2 \n"))
	assert.Equal(t, "", NormalizeAnswer("   "))
}

func TestGradeMultipleChoice(t *testing.T) {
	p := mcProblem(false, true, false)

	ok, err := GradeAnswer(p, "12")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = GradeAnswer(p, " ba ")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = GradeAnswer(p, "11")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGradeFill(t *testing.T) {
	p := &model.Problem{Code: "fill1", AnswerType: model.AnswerFill, Answers: []model.Answer{{Description: "3/4"}}}

	ok, err := GradeAnswer(p, " 3/4")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = GradeAnswer(p, "0.75")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGradeBrokenAnswerKey(t *testing.T) {
	_, err := GradeAnswer(mcProblem(true, true), "11")
	assert.ErrorIs(t, err, util.ErrInvalidAnswerKey)

	_, err = GradeAnswer(mcProblem(false, false), "11")
	assert.ErrorIs(t, err, util.ErrInvalidAnswerKey)
}

func TestValidateAnswers(t *testing.T) {
	two := mcProblem(true, true, false)
	assert.ErrorIs(t, ValidateAnswers(model.AnswerMultipleChoice, two.Answers), util.ErrValidation)

	one := mcProblem(false, true, false)
	assert.NoError(t, ValidateAnswers(model.AnswerMultipleChoice, one.Answers))

	assert.NoError(t, ValidateAnswers(model.AnswerFill, []model.Answer{{Description: "42"}}))
	assert.Error(t, ValidateAnswers(model.AnswerFill, []model.Answer{{Description: "1"}, {Description: "2"}}))
	assert.Error(t, ValidateAnswers(model.AnswerFill, []model.Answer{{Description: "  "}}))
	assert.Error(t, ValidateAnswers("essay", nil))
}
