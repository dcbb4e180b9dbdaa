package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/stemsi/exstem-selftest/internal/config"
	"github.com/stemsi/exstem-selftest/internal/model"
	"github.com/stemsi/exstem-selftest/internal/service"
	"golang.org/x/term"
)

func main() {
	var (
		tokenType    string
		promptSecret bool
		permissions  string
	)
	flag.StringVar(&tokenType, "type", "learner", "Token type: learner or admin")
	flag.BoolVar(&promptSecret, "prompt-secret", false, "Read the signing secret from the terminal instead of JWT_SECRET")
	flag.StringVar(&permissions, "permissions", "", "Comma separated admin permissions (default: all)")
	flag.Parse()

	cfg := config.Load()
	reader := bufio.NewReader(os.Stdin)

	fmt.Printf("=== Issue %s token ===\n", tokenType)

	// ─── Signing Secret ────────────────────────────────────────────────
	if promptSecret {
		fmt.Print("Enter JWT Secret: ")
		secret, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			fmt.Println("Error reading secret")
			os.Exit(1)
		}
		if len(secret) < 16 {
			fmt.Println("Error: Secret must be at least 16 characters")
			os.Exit(1)
		}
		cfg.JWTSecret = string(secret)
	}

	// ─── Subject ───────────────────────────────────────────────────────
	fmt.Print("Enter User ID: ")
	idStr, _ := reader.ReadString('\n')
	userID, err := strconv.Atoi(strings.TrimSpace(idStr))
	if err != nil || userID <= 0 {
		fmt.Println("Error: User ID must be a positive number")
		os.Exit(1)
	}

	fmt.Print("Enter Name (optional): ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)

	// ─── Sign ──────────────────────────────────────────────────────────
	auth := service.NewAuthService(cfg)

	var token string
	switch tokenType {
	case "learner":
		token, err = auth.GenerateLearnerToken(userID, name)
	case "admin":
		perms, perr := parsePermissions(permissions)
		if perr != nil {
			fmt.Println("Error:", perr)
			os.Exit(1)
		}
		token, err = auth.GenerateAdminToken(userID, name, perms)
	default:
		fmt.Printf("Error: unknown token type %q\n", tokenType)
		os.Exit(1)
	}
	if err != nil {
		fmt.Println("Error signing token:", err)
		os.Exit(1)
	}

	fmt.Printf("\nToken (expires in %s):\n%s\n", cfg.JWTExpiry, token)
}

func parsePermissions(list string) ([]model.Permission, error) {
	if strings.TrimSpace(list) == "" {
		return model.AllPermissions, nil
	}

	known := make(map[model.Permission]bool, len(model.AllPermissions))
	for _, p := range model.AllPermissions {
		known[p] = true
	}

	var out []model.Permission
	for _, code := range strings.Split(list, ",") {
		p := model.Permission(strings.TrimSpace(code))
		if !known[p] {
			return nil, fmt.Errorf("unknown permission %q", p)
		}
		out = append(out, p)
	}
	return out, nil
}
