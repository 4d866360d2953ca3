package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Init 加载 .env 配置（不存在时使用系统环境变量）
func Init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
}

// Get 读取环境变量，不存在时返回默认值
func Get(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// JWTSecret 返回签发 token 使用的密钥
func JWTSecret() []byte {
	return []byte(Get("JWT_SECRET", "chat-server-secret"))
}

// InitDB 初始化数据库连接
func InitDB() {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		Get("DB_USER", "root"),
		Get("DB_PASSWORD", ""),
		Get("DB_HOST", "127.0.0.1"),
		Get("DB_PORT", "3306"),
		Get("DB_NAME", "chat"),
	)

	// TranslateError 让重复键等驱动错误转成 gorm 错误，会话去重依赖它
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	DB = db
}
