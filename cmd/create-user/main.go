package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/cgpaplus/exam-core/internal/config"
	"github.com/cgpaplus/exam-core/internal/database"
	"github.com/cgpaplus/exam-core/internal/logger"
	"github.com/cgpaplus/exam-core/internal/model"
	"github.com/cgpaplus/exam-core/internal/repository"
	"github.com/cgpaplus/exam-core/internal/service"
	"golang.org/x/term"
)

func main() {
	tokenFor := flag.Int("token-for", 0, "Print a fresh token for an existing user id and exit")
	flag.Parse()

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.New(os.Stderr, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	userRepo := repository.NewUserRepository(pool)
	authService := service.NewAuthService(cfg)

	if *tokenFor > 0 {
		u, err := userRepo.GetByID(ctx, *tokenFor)
		if err != nil {
			log.Fatal().Err(err).Int("user_id", *tokenFor).Msg("Failed to load user")
		}
		printToken(authService, u)
		return
	}

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New User ===")

	name := prompt(reader, "Enter Name: ")
	if name == "" {
		fmt.Println("Error: Name is required")
		return
	}
	email := prompt(reader, "Enter Email: ")
	if email == "" {
		fmt.Println("Error: Email is required")
		return
	}
	college := prompt(reader, "Enter College: ")

	role := model.RoleParticipant
	switch prompt(reader, "Role [participant/admin] (default participant): ") {
	case "", string(model.RoleParticipant):
	case string(model.RoleAdmin):
		role = model.RoleAdmin
	default:
		fmt.Println("Error: Role must be participant or admin")
		return
	}

	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Println("Error reading password")
		return
	}
	password := string(bytePassword)
	if len(password) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		return
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	hash, err := authService.HashPassword(password)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}

	fmt.Print("Confirm Password: ")
	confirm, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Println("Error reading password")
		return
	}
	if err := authService.CheckPassword(hash, string(confirm)); errors.Is(err, service.ErrInvalidCredentials) {
		fmt.Println("Error: Passwords do not match")
		return
	}

	u := &model.User{
		Name:         name,
		Email:        email,
		College:      college,
		Role:         role,
		PasswordHash: hash,
	}
	if err := userRepo.Create(ctx, u); err != nil {
		log.Fatal().Err(err).Msg("Failed to create user")
	}

	fmt.Printf("\nSuccess! %s '%s' (%s) created with ID: %d\n", u.Role, u.Name, u.Email, u.ID)
	printToken(authService, u)
}

func prompt(r *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := r.ReadString('\n')
	return strings.TrimSpace(line)
}

func printToken(auth *service.AuthService, u *model.User) {
	token, err := auth.GenerateToken(u.ID, u.Role)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: generate token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
