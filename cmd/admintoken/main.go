// Command admintoken prints a Bearer token for the admin API routes.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/digitalvishon/taskpay/internal/jwt"
)

func main() {
	adminID := flag.Int64("id", 1, "admin identifier to embed in the token")
	secret := flag.String("secret", "", "JWT signing key (must match the server config)")
	expiration := flag.Duration("exp", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *secret == "" {
		log.Fatal("missing required flag: -secret")
	}

	token, err := jwt.BuildString(*adminID, *secret, *expiration)
	if err != nil {
		log.Fatalf("build token: %v", err)
	}

	fmt.Println(token)
}
