package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"duotoeic/internal/ledger"
	"duotoeic/internal/models"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

type Config struct {
	Port        string        `env:"PORT" envDefault:"8080"`
	JWTSecret   string        `env:"JWT_SECRET,notEmpty"`
	CORSOrigins []string      `env:"CORS_ORIGIN" envSeparator:","`
	TokenTTL    time.Duration `env:"TOKEN_TTL" envDefault:"168h"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"memory"`
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"duotoeic.db"`
	SeedDemo    bool   `env:"SEED_DEMO" envDefault:"true"`

	UsersFile string `env:"USERS_FILE"`

	Gemini Gemini `envPrefix:"GEMINI_"`
	Rules  Rules  `envPrefix:"RULE_"`

	// Users is filled from UsersFile or the built-in pair.
	Users Users
}

type Gemini struct {
	APIKey  string        `env:"API_KEY"`
	Model   string        `env:"MODEL" envDefault:"gemini-3-flash-preview"`
	BaseURL string        `env:"BASE_URL" envDefault:"https://generativelanguage.googleapis.com"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

type Rules struct {
	LockVerified             bool `env:"LOCK_VERIFIED"`
	RequireCompletedToVerify bool `env:"REQUIRE_COMPLETED_TO_VERIFY" envDefault:"true"`
	ForbidDeleteVerified     bool `env:"FORBID_DELETE_VERIFIED" envDefault:"true"`
}

func (r Rules) Ledger() ledger.Rules {
	return ledger.Rules{
		LockVerified:             r.LockVerified,
		RequireCompletedToVerify: r.RequireCompletedToVerify,
		ForbidDeleteVerified:     r.ForbidDeleteVerified,
	}
}

// Load reads the environment and the user table.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	switch cfg.StoreDriver {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, errors.New("DATABASE_URL is required for the postgres store")
		}
	default:
		return Config{}, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	users := DefaultUsers()
	if cfg.UsersFile != "" {
		loaded, err := LoadUsers(cfg.UsersFile)
		if err != nil {
			return Config{}, err
		}
		users = loaded
	}
	cfg.Users = users
	return cfg, nil
}

// Users is the fixed pair of study partners.
type Users []models.User

func DefaultUsers() Users {
	return Users{
		{ID: "user1", Name: "Nguyen", Color: "#6366f1", Avatar: "https://ui-avatars.com/api/?name=Nguyen&background=6366f1&color=fff&size=128"},
		{ID: "user2", Name: "Huyen", Color: "#ec4899", Avatar: "https://ui-avatars.com/api/?name=Huyen&background=ec4899&color=fff&size=128"},
	}
}

type usersFile struct {
	Users []models.User `yaml:"users"`
}

func LoadUsers(path string) (Users, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read users file: %w", err)
	}
	var file usersFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse users file: %w", err)
	}
	users := Users(file.Users)
	if err := users.Validate(); err != nil {
		return nil, err
	}
	return users, nil
}

// Validate requires exactly two users with distinct, non-empty ids.
func (u Users) Validate() error {
	if len(u) != 2 {
		return fmt.Errorf("expected exactly 2 users, got %d", len(u))
	}
	for _, user := range u {
		if strings.TrimSpace(string(user.ID)) == "" {
			return errors.New("user id required")
		}
		if strings.TrimSpace(user.Name) == "" {
			return fmt.Errorf("user %s: name required", user.ID)
		}
	}
	if u[0].ID == u[1].ID {
		return fmt.Errorf("duplicate user id %s", u[0].ID)
	}
	return nil
}

func (u Users) IDs() []models.UserID {
	ids := make([]models.UserID, 0, len(u))
	for _, user := range u {
		ids = append(ids, user.ID)
	}
	return ids
}

func (u Users) Get(id models.UserID) (models.User, bool) {
	for _, user := range u {
		if user.ID == id {
			return user, true
		}
	}
	return models.User{}, false
}

// Partner returns the other user of the pair.
func (u Users) Partner(id models.UserID) (models.User, bool) {
	if _, ok := u.Get(id); !ok {
		return models.User{}, false
	}
	for _, user := range u {
		if user.ID != id {
			return user, true
		}
	}
	return models.User{}, false
}
