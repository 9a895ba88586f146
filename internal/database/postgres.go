// internal/database/postgres.go - 텔레메트리 DB
package database

import (
	"fmt"

	"boat-navigator/internal/config"
	"boat-navigator/internal/models"
	"boat-navigator/internal/utils"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewPostgresDB(cfg *config.Config) (*gorm.DB, error) {
	utils.Logger.Infof("🏗️ CREATING Postgres Connection (%s:%s/%s)", cfg.DBHost, cfg.DBPort, cfg.DBName)

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		// 주기별 INSERT 가 많아 SQL 로그는 끈다
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&models.NavSession{},  // 항해 세션
		&models.StateSample{}, // 추정/예측 상태
		&models.MeasSample{},  // 측정값
		&models.NavSample{},   // pure pursuit 기하
	); err != nil {
		return nil, err
	}

	utils.Logger.Infof("✅ Postgres Connection CREATED")
	return db, nil
}
