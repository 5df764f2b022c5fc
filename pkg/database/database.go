package database

import (
	"edu_network_backend/internal/config"
	"edu_network_backend/internal/model"
	"edu_network_backend/pkg/logger"
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig, migrate bool) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	// TranslateError 让唯一约束冲突以 gorm.ErrDuplicatedKey 返回，镜像 upsert 依赖它
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Database connection established")

	if migrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}
		logger.Log.Info("Database migration completed")
	}

	return db, nil
}

// Migrate 创建/更新分发引擎的全部表结构
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.GlobalContent{},
		&model.ContentVersion{},
		&model.Node{},
		&model.LocalContent{},
		&model.DistributionJob{},
		&model.TranslationRequest{},
		&model.Subscription{},
	)
}
