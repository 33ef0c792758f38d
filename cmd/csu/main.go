// Command csu creates the superuser account, or resets it when it exists.
package main

import (
	"context"
	"errors"
	"os"

	"github.com/suteetoe/tradenet/internal/model"
	"github.com/suteetoe/tradenet/pkg/config"
	"github.com/suteetoe/tradenet/pkg/database"
	"github.com/suteetoe/tradenet/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var errNoPassword = errors.New("SUPERUSER_PASSWORD is not set")

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	if err := logger.InitLogger(cfg); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	defer log.Sync()

	if _, err := database.InitDB(&cfg.DB); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer database.Close()

	if err := database.MigrateModels(model.All()...); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}

	ctx := logger.WithLogger(context.Background(), log.With(zap.String("command", "csu")))
	user, err := ensureSuperuser(ctx, &cfg.Superuser)
	if err != nil {
		log.Error("Failed to create superuser", zap.Error(err))
		os.Exit(1)
	}
	log.Info("Superuser ready", zap.Uint("user_id", user.ID), zap.String("email", user.Email))
}

// ensureSuperuser creates the configured superuser or resets the password and
// flags of an existing account with the same email
func ensureSuperuser(ctx context.Context, cfg *config.SuperuserConfig) (*model.User, error) {
	if cfg.Password == "" {
		return nil, errNoPassword
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	log := logger.FromGoContext(ctx).With(zap.String("email", cfg.Email))

	var user model.User
	err = database.Transaction(ctx, func(tx *gorm.DB) error {
		err := tx.Where("email = ?", cfg.Email).First(&user).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			log.Info("Creating superuser")
		case err != nil:
			return err
		default:
			log.Info("Resetting superuser", zap.Uint("user_id", user.ID))
		}

		user.Email = cfg.Email
		user.Password = string(hashedPassword)
		user.FirstName = cfg.FirstName
		user.LastName = cfg.LastName
		user.IsActive = true
		user.IsStaff = true
		user.IsSuperuser = true
		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}
