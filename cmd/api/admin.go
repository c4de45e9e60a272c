package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	pgStorage "retail-bank/internal/adapter/storage/postgres"
	"retail-bank/internal/core/domain"
	"retail-bank/internal/core/ports"
	"retail-bank/internal/service"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

// createAdminCommand provisions an admin user. Registration over HTTP only
// ever creates customers.
func createAdminCommand(a *app) *cobra.Command {
	var req ports.RegisterRequest

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin user in PostgreSQL",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.ConfirmPassword = req.Password
			if err := req.Validate(); err != nil {
				return fmt.Errorf("invalid admin: %w", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			pool, err := pgStorage.NewPool(ctx, a.cfg.Database, a.log)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pool.Close()

			hash, err := service.NewBcryptHashService(bcrypt.DefaultCost).Hash(req.Password)
			if err != nil {
				return err
			}

			user := &domain.User{
				ID:           uuid.New(),
				FullName:     req.FullName,
				Email:        req.Email,
				PhoneNumber:  req.PhoneNumber,
				Role:         domain.RoleAdmin,
				PasswordHash: hash,
				CreatedAt:    time.Now().UTC(),
			}
			if err := pgStorage.NewUserRepo(pool).Create(ctx, user); err != nil {
				if errors.Is(err, ports.ErrDuplicatePhone) {
					return fmt.Errorf("phone number %s is already registered", req.PhoneNumber)
				}
				return err
			}

			a.log.Info().Str("user_id", user.ID.String()).Msg("Admin user created")
			return nil
		},
	}

	cmd.Flags().StringVar(&req.FullName, "name", "", "full name")
	cmd.Flags().StringVar(&req.Email, "email", "", "email address")
	cmd.Flags().StringVar(&req.PhoneNumber, "phone", "", "10-digit phone number")
	cmd.Flags().StringVar(&req.Password, "password", "", "login password")
	_ = cmd.MarkFlagRequired("phone")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
