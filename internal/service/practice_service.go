package service

import (
	"emath_backend/internal/model"
	"emath_backend/internal/repository"
	"emath_backend/internal/util"
	"emath_backend/pkg/logger"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// difficultyTarget 预留档位，当前没有题目使用
const difficultyTarget model.Difficulty = "target"

type practiceBucket struct {
	difficulty model.Difficulty
	count      int
}

// practiceFormat 从难到易组卷，难题不足时由下一档补齐
var practiceFormat = []practiceBucket{
	{difficultyTarget, 0},
	{model.DifficultyGMaster, 1},
	{model.DifficultyMaster, 1},
	{model.DifficultyCMaster, 1},
	{model.DifficultyExpert, 2},
	{model.DifficultyAmateur, 2},
	{model.DifficultyNewbie, 3},
}

// AssemblePractice 按档位挑选题目，某档题目不足时全部选入并把差额累计到下一档
func AssemblePractice(candidates map[model.Difficulty][]uint, shuffle func(n int, swap func(i, j int))) []uint {
	var chosen []uint
	wanted := 0
	for _, b := range practiceFormat {
		wanted += b.count
		ids := append([]uint(nil), candidates[b.difficulty]...)
		if len(ids) < wanted {
			wanted -= len(ids)
			chosen = append(chosen, ids...)
			continue
		}
		shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
		chosen = append(chosen, ids[:wanted]...)
		wanted = 0
	}
	return chosen
}

type PracticeService struct {
	PracticeRepo *repository.PracticeRepository
	ProblemRepo  *repository.ProblemRepository
	Shuffle      func(n int, swap func(i, j int))
}

func NewPracticeService(practiceRepo *repository.PracticeRepository, problemRepo *repository.ProblemRepository) *PracticeService {
	return &PracticeService{
		PracticeRepo: practiceRepo,
		ProblemRepo:  problemRepo,
		Shuffle:      rand.Shuffle,
	}
}

type CreatePracticeRequest struct {
	LevelID uint   `json:"levelId" binding:"required"`
	Name    string `json:"name"`
}

// CreatePractice 为指定等级随机组一套练习
func (s *PracticeService) CreatePractice(v *Viewer, req *CreatePracticeRequest) (*model.Practice, error) {
	if !v.Authenticated() {
		return nil, util.ErrUnauthorized
	}
	level, err := s.ProblemRepo.FindLevel(req.LevelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: unknown level %d", util.ErrValidation, req.LevelID)
		}
		return nil, err
	}

	candidates := make(map[model.Difficulty][]uint, len(practiceFormat))
	for _, b := range practiceFormat {
		if b.difficulty == difficultyTarget {
			continue
		}
		ids, err := s.ProblemRepo.PublicIDsByDifficulty(b.difficulty, &level.ID)
		if err != nil {
			return nil, err
		}
		candidates[b.difficulty] = ids
	}
	shuffle := s.Shuffle
	if shuffle == nil {
		shuffle = rand.Shuffle
	}
	ids := AssemblePractice(candidates, shuffle)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no public problems for level %s", util.ErrValidation, level.Name)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "Practice"
	}
	practice := &model.Practice{Name: name, LevelID: &level.ID, CreatorID: v.UserID}
	for i, id := range ids {
		practice.Problems = append(practice.Problems, model.PracticeProblem{ProblemID: id, Points: 1, SortOrder: i + 1})
	}
	if err := s.PracticeRepo.Create(practice); err != nil {
		return nil, util.TranslateDBError(err)
	}
	logger.Log.Info("Practice created",
		zap.Uint("practiceID", practice.ID),
		zap.String("level", level.Name),
		zap.Int("problems", len(ids)),
	)
	return s.Get(v, practice.ID)
}

// Get 练习详情，不包含答案
func (s *PracticeService) Get(v *Viewer, id uint) (*model.Practice, error) {
	if !v.Authenticated() {
		return nil, util.ErrUnauthorized
	}
	practice, err := s.PracticeRepo.FindByID(id)
	if err != nil {
		return nil, util.TranslateDBError(err)
	}
	for i := range practice.Problems {
		if p := practice.Problems[i].Problem; p != nil {
			p.Answers = nil
		}
	}
	return practice, nil
}

func (s *PracticeService) List(v *Viewer, page, limit int) ([]model.Practice, int64, error) {
	if !v.Authenticated() {
		return nil, 0, util.ErrUnauthorized
	}
	return s.PracticeRepo.ListByCreator(v.UserID, page, limit)
}
