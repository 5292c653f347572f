package database

import (
	"emath_backend/internal/config"
	"emath_backend/internal/model"
	"emath_backend/pkg/logger"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormConfig 统一的 gorm 配置，测试中的 sqlite 连接也使用它
func GormConfig(logMode gormlogger.LogLevel) *gorm.Config {
	return &gorm.Config{
		Logger:         gormlogger.Default.LogMode(logMode),
		TranslateError: true,
		// users.current_contest_id 与 contest_participations.user_id 互相引用
		DisableForeignKeyConstraintWhenMigrating: true,
	}
}

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), GormConfig(gormlogger.Warn))
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Database connection established", zap.String("host", cfg.Host), zap.String("db", cfg.DBName))
	return db, nil
}

// Migrate 迁移全部表结构并写入默认数据
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.All()...); err != nil {
		return err
	}
	return seedDefaults(db)
}

func seedDefaults(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.ProblemGroup{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	groups := []model.ProblemGroup{
		{Name: "algebra", FullName: "Đại số"},
		{Name: "geometry", FullName: "Hình học"},
		{Name: "arithmetic", FullName: "Số học"},
		{Name: "combinatorics", FullName: "Tổ hợp"},
	}
	if err := db.Create(&groups).Error; err != nil {
		return err
	}

	logger.Log.Info("Default problem groups created", zap.Int("count", len(groups)))
	return nil
}
