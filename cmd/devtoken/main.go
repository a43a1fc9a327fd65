package main // devtoken mints access tokens for local testing against the ledger API

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/seat-ledger/internal/model"
	"github.com/iliyamo/seat-ledger/internal/utils"
)

func main() {
	_ = godotenv.Load()

	userID := flag.Uint64("user", 0, "user id to put in the sub claim")
	role := flag.String("role", model.RoleUser, "role claim: USER or ADMIN")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" || *userID == 0 {
		fmt.Fprintln(os.Stderr, "usage: JWT_SECRET=... devtoken -user 42 [-role ADMIN] [-ttl 1h]")
		os.Exit(2)
	}
	r := strings.ToUpper(*role)
	if r != model.RoleUser && r != model.RoleAdmin {
		fmt.Fprintf(os.Stderr, "unknown role %q\n", *role)
		os.Exit(2)
	}
	tok, err := utils.NewAccessToken(secret, *userID, r, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
