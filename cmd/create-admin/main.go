package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"webmail/backend/internal/config"
	"webmail/backend/internal/credential"
	"webmail/backend/internal/domain"
	"webmail/backend/internal/logger"
	"webmail/backend/internal/service"
	"webmail/backend/internal/storage"
	sqlstore "webmail/backend/internal/storage/sql"
)

func main() {
	// 解析命令行参数
	domainName := flag.String("domain", "", "管理员所属的域名（不存在时自动创建并标记通过验证）")
	username := flag.String("username", "admin", "管理员用户名")
	password := flag.String("password", "", "管理员密码")
	fullName := flag.String("name", "Administrator", "管理员显示名称")
	flag.Parse()

	if *domainName == "" || *password == "" {
		fmt.Println("用法:")
		fmt.Println("  go run cmd/create-admin/main.go -domain=example.com -username=admin -password='Secret123'")
		fmt.Println("数据库连接取自 WEBMAIL_DATABASE_TYPE / WEBMAIL_DATABASE_DSN 环境变量。")
		os.Exit(1)
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("错误: 无法加载配置: %v\n", err)
		os.Exit(1)
	}

	if cfg.Database.Type == "" || cfg.Database.DSN == "" {
		fmt.Println("错误: 未配置数据库，内存存储中创建的账户在进程退出后即丢失")
		os.Exit(1)
	}

	store, err := sqlstore.NewStore(
		cfg.Database.Type,
		cfg.Database.DSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
		cfg.Database.ConnMaxLifetime,
	)
	if err != nil {
		fmt.Printf("错误: 无法连接数据库: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	log := logger.NewDevelopmentLogger()
	defer log.Sync()

	provider := credential.NewLocalProvider(store)
	directory := service.NewDirectoryService(store, provider, cfg, log)
	verifier := service.NewVerifierService(store, service.InstantChecker{}, nil, cfg, log)

	// 域名不存在时创建并直接验证
	d, err := store.GetDomainByName(*domainName)
	if errors.Is(err, storage.ErrDomainNotFound) {
		d, err = directory.CreateDomain(*domainName, "create-admin")
		if err != nil {
			fmt.Printf("错误: 创建域名失败: %v\n", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if d, err = verifier.VerifyDomain(ctx, d.ID); err != nil {
			fmt.Printf("错误: 验证域名失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✓ 域名已创建并通过验证: %s\n", d.Name)
	} else if err != nil {
		fmt.Printf("错误: 查询域名失败: %v\n", err)
		os.Exit(1)
	}

	user, err := directory.CreateUser(service.CreateUserInput{
		FullName:        *fullName,
		Username:        *username,
		DomainID:        d.ID,
		Password:        *password,
		ConfirmPassword: *password,
		Role:            domain.RoleAdmin,
	})
	if err != nil {
		fmt.Printf("错误: 创建管理员失败: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("✓ 管理员创建成功!")
	fmt.Printf("  ID:    %s\n", user.ID)
	fmt.Printf("  Email: %s\n", user.Email)
	fmt.Printf("  Role:  %s\n", user.Role)
}
