package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/zhouzirui/mindmate/backend/internal/config"
	"github.com/zhouzirui/mindmate/backend/internal/service/auth"
)

// tokengen 为本地调试签发 JWT，便于调用需要身份的接口。
func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}
	if !cfg.Auth.Enabled() {
		log.Fatal("JWT_SECRET 未配置，无法签发令牌")
	}

	userID := flag.String("user", "", "用户 ID，留空则随机生成")
	ttl := flag.Duration("ttl", cfg.Auth.TTL, "令牌有效期")
	flag.Parse()

	if *userID == "" {
		*userID = uuid.NewString()
	}

	svc, err := auth.NewService(cfg.Auth.Secret, *ttl)
	if err != nil {
		log.Fatalf("初始化 JWT 服务失败: %v", err)
	}
	token, expires, err := svc.Issue(*userID)
	if err != nil {
		log.Fatalf("签发令牌失败: %v", err)
	}

	fmt.Printf("user:    %s\n", *userID)
	fmt.Printf("expires: %s\n", expires.Format(time.RFC3339))
	fmt.Printf("token:   %s\n", token)
}
