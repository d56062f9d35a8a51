// Command createuser provisions a login account for the voting site.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Clark-Hu/movie-votes/internal/auth"
	"github.com/Clark-Hu/movie-votes/internal/config"
	"github.com/Clark-Hu/movie-votes/internal/logging"
	"github.com/Clark-Hu/movie-votes/internal/repository"
	"github.com/Clark-Hu/movie-votes/internal/store"
)

func main() {
	if err := config.LoadEnvFile(); err != nil {
		log.Fatalf("config error: %v", err)
	}

	var (
		dbURL    = flag.String("db", os.Getenv("DB_URL"), "postgres connection string (defaults to DB_URL)")
		username = flag.String("username", "", "account username")
		password = flag.String("password", os.Getenv("CREATEUSER_PASSWORD"), "account password (or CREATEUSER_PASSWORD)")
		cost     = flag.Int("cost", bcrypt.DefaultCost, "bcrypt cost")
		migrate  = flag.Bool("migrate", true, "apply schema migrations first")
	)
	flag.Parse()

	name := strings.TrimSpace(*username)
	switch {
	case *dbURL == "":
		log.Fatal("a database URL is required (-db or DB_URL)")
	case name == "":
		log.Fatal("-username is required")
	case *password == "":
		log.Fatal("-password is required")
	case *cost < bcrypt.MinCost || *cost > bcrypt.MaxCost:
		log.Fatalf("-cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	logger := logging.New(os.Stderr, "warn", "text")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, err := store.New(ctx, *dbURL, store.Options{MaxConns: 2, StatementCacheCapacity: -1, Logger: logger})
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer st.Close()

	if *migrate {
		if err := st.Migrate(ctx); err != nil {
			log.Fatalf("migrate database: %v", err)
		}
	}

	hash, err := auth.HashPassword(*password, *cost)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	repo := repository.New(st)
	user, err := repo.Users.Create(ctx, name, hash)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			log.Fatalf("user %q already exists", name)
		}
		log.Fatalf("create user: %v", err)
	}
	log.Printf("created user %q with id %d", user.Username, user.ID)
}
