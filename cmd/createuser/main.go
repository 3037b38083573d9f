// cmd/createuser/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/user"
	"github.com/your-org/storefront/internal/infrastructure/database/postgres"
	"github.com/your-org/storefront/internal/pkg/auth"
	"github.com/your-org/storefront/internal/pkg/logger"
)

func main() {
	email := flag.String("email", "", "account email")
	password := flag.String("password", "", "account password")
	name := flag.String("name", "", "display name")
	admin := flag.Bool("admin", false, "grant admin access")
	referral := flag.String("referral", "", "referral code of the referring user")
	flag.Parse()

	if *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "Usage: createuser -email <email> -password <password> [-name <name>] [-admin] [-referral <code>]")
		os.Exit(2)
	}
	if err := auth.ValidatePassword(*password); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid password: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg)

	db, err := postgres.NewConnection(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	u, err := user.NewService(db.GetDB(), cfg, log).Create(ctx, &user.CreateRequest{
		Email:        *email,
		Password:     *password,
		Name:         *name,
		IsAdmin:      *admin,
		ReferralCode: *referral,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to create user")
	}

	fmt.Printf("Created user %d (%s), referral code %s\n", u.ID, u.Email, u.ReferralCode)
}
