package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"pollpulse-backend/models"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB 是全局数据库连接
var DB *gorm.DB

// InitDB 初始化数据库连接
func InitDB() error {
	// 配置GORM日志
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second, // 慢SQL阈值
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true, // 忽略ErrRecordNotFound错误
			Colorful:                  true,
		},
	)

	// 从环境变量获取MySQL数据库配置
	dbUser := getEnv("DB_USER", "pollpulse_app")
	dbPassword := getEnv("DB_PASSWORD", "pollpulse_password")
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "3306")
	dbName := getEnv("DB_NAME", "pollpulse")

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		dbUser, dbPassword, dbHost, dbPort, dbName)

	var err error
	DB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		return fmt.Errorf("连接数据库失败: %v", err)
	}

	// 配置连接池
	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("获取底层连接池失败: %v", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(DB); err != nil {
		return err
	}

	// 添加一些示例数据（仅在开发模式下）
	if getEnv("ENVIRONMENT", "development") == "development" {
		createSampleData()
	}

	log.Println("数据库连接和迁移成功")
	return nil
}

// Migrate 自动迁移模型并创建索引
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Poll{},
		&models.PollOption{},
		&models.User{},
		&models.Vote{},
	); err != nil {
		return fmt.Errorf("迁移模型失败: %v", err)
	}

	// 一人一票的唯一性由提交事务保证（见 handlers.SubmitVote），
	// 允许多票的投票不能背负全表唯一约束，所以 votes(poll_id, user_id)
	// 只是普通组合索引，由模型标签声明。
	return nil
}

// createSampleData 创建示例数据
func createSampleData() {
	var count int64
	DB.Model(&models.Poll{}).Count(&count)
	if count > 0 {
		log.Println("数据库已有数据，跳过示例数据创建")
		return
	}

	log.Println("创建示例数据...")

	endsAt := time.Now().Add(7 * 24 * time.Hour) // 一周后结束
	poll := models.Poll{
		Question:              "What's your favorite programming language?",
		Description:           "The eternal debate.",
		Theme:                 "neon",
		Status:                models.PollStatusActive,
		EndsAt:                &endsAt,
		ShowResultsBeforeVote: true,
	}
	if err := DB.Create(&poll).Error; err != nil {
		log.Printf("创建示例投票失败: %v", err)
		return
	}

	options := []models.PollOption{
		{PollID: poll.ID, Text: "Go", Emoji: "🐹", DisplayOrder: 0},
		{PollID: poll.ID, Text: "Python", Emoji: "🐍", DisplayOrder: 1},
		{PollID: poll.ID, Text: "JavaScript", Emoji: "✨", DisplayOrder: 2},
		{PollID: poll.ID, Text: "Rust", Emoji: "🦀", DisplayOrder: 3},
	}
	if err := DB.Create(&options).Error; err != nil {
		log.Printf("创建示例选项失败: %v", err)
		return
	}

	log.Println("示例数据创建成功")
}

// CloseDB 关闭数据库连接
func CloseDB() {
	sqlDB, err := DB.DB()
	if err != nil {
		log.Printf("获取数据库连接失败: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Printf("关闭数据库连接失败: %v", err)
		return
	}

	log.Println("数据库连接已关闭")
}

// getEnv 获取环境变量值或使用默认值
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
