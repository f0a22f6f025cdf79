package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"trackApply/internal/account"
	"trackApply/internal/config"
	"trackApply/internal/database"
)

// printNotifier writes the reset link to stdout instead of mailing it.
type printNotifier struct{}

func (printNotifier) NotifyPasswordReset(_ context.Context, email, link string, expiresAt time.Time) error {
	fmt.Printf("已为账号生成密码重置链接：\n")
	fmt.Printf("邮箱: %s\n", email)
	fmt.Printf("链接: %s\n", link)
	fmt.Printf("过期时间: %s\n", expiresAt.Format(time.RFC3339))
	return nil
}

func main() {
	var (
		email     = flag.String("email", "", "需要重置密码的账号邮箱（必填）")
		clientURL = flag.String("client-url", "", "前端地址（可选，默认读 CLIENT_URL）")
		ttl       = flag.Duration("ttl", time.Hour, "重置链接有效期")
		dbURL     = flag.String("db-url", "", "数据库连接串（可选，默认读 DATABASE_URL）")
		dbHost    = flag.String("db-host", "", "数据库 Host（可选，默认读 DATABASE_HOST）")
		dbPort    = flag.Int("db-port", 0, "数据库 Port（可选，默认读 DATABASE_PORT）")
		dbName    = flag.String("db-name", "", "数据库名（可选，默认读 POSTGRES_DB）")
		dbUser    = flag.String("db-user", "", "数据库用户（可选，默认读 POSTGRES_USER）")
		dbPass    = flag.String("db-password", "", "数据库密码（可选，默认读 POSTGRES_PASSWORD）")
		sslMode   = flag.String("db-sslmode", "", "数据库 SSLMODE（可选，默认读 DATABASE_SSLMODE）")
	)
	flag.Parse()

	target := strings.ToLower(strings.TrimSpace(*email))
	if target == "" {
		log.Fatal("missing required flag: --email")
	}

	base := strings.TrimSpace(*clientURL)
	if base == "" {
		base = os.Getenv("CLIENT_URL")
	}
	if base == "" {
		base = "http://localhost:5173"
	}

	dbCfg, err := loadDatabaseConfig(*dbURL, *dbHost, *dbPort, *dbName, *dbUser, *dbPass, *sslMode)
	if err != nil {
		log.Fatalf("load database config: %v", err)
	}

	db, err := database.InitDatabase(dbCfg)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}

	ctx := context.Background()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	users := database.NewUserStore(db)
	switch _, err := users.FindByEmail(ctx, target); {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		log.Fatalf("no account with email %q", target)
	default:
		log.Fatalf("query user: %v", err)
	}

	svc := account.NewService(users, nil, printNotifier{}, account.Options{ClientURL: base, ResetTokenTTL: *ttl})
	if err := svc.RequestPasswordReset(ctx, target); err != nil {
		log.Fatalf("issue reset link: %v", err)
	}
	fmt.Printf("提示：该链接只能使用一次，请通过安全渠道发送给用户。\n")
}

func loadDatabaseConfig(url, host string, port int, name, user, password, sslmode string) (config.DatabaseConfig, error) {
	if strings.TrimSpace(url) == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if strings.TrimSpace(url) != "" {
		return config.DatabaseConfig{URL: url}, nil
	}

	if strings.TrimSpace(host) == "" {
		host = os.Getenv("DATABASE_HOST")
	}
	if port <= 0 {
		if env := strings.TrimSpace(os.Getenv("DATABASE_PORT")); env != "" {
			p, err := strconv.Atoi(env)
			if err != nil {
				return config.DatabaseConfig{}, fmt.Errorf("parse DATABASE_PORT: %w", err)
			}
			port = p
		}
	}
	if strings.TrimSpace(name) == "" {
		name = os.Getenv("POSTGRES_DB")
	}
	if strings.TrimSpace(user) == "" {
		user = os.Getenv("POSTGRES_USER")
	}
	if strings.TrimSpace(password) == "" {
		password = os.Getenv("POSTGRES_PASSWORD")
	}
	if strings.TrimSpace(sslmode) == "" {
		sslmode = os.Getenv("DATABASE_SSLMODE")
	}

	if strings.TrimSpace(host) == "" {
		host = "localhost"
	}
	if port <= 0 {
		port = 5432
	}
	if strings.TrimSpace(sslmode) == "" {
		sslmode = "disable"
	}
	if strings.TrimSpace(name) == "" {
		return config.DatabaseConfig{}, errors.New("database name is required (POSTGRES_DB)")
	}
	if strings.TrimSpace(user) == "" {
		return config.DatabaseConfig{}, errors.New("database user is required (POSTGRES_USER)")
	}
	if strings.TrimSpace(password) == "" {
		return config.DatabaseConfig{}, errors.New("database password is required (POSTGRES_PASSWORD)")
	}

	return config.DatabaseConfig{
		Host:     host,
		Port:     port,
		Name:     name,
		User:     user,
		Password: password,
		SSLMode:  sslmode,
	}, nil
}
