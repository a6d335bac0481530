package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"consigna/internal/auth"
	"consigna/internal/domain"
	"consigna/internal/server"
	"consigna/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type userParams struct {
	Email    string
	Password string
	Name     string
	Role     domain.Role
}

func newUserCmd(deps depsFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage internal users",
	}

	var params userParams
	var role string
	create := &cobra.Command{
		Use:   "create",
		Short: "Link a sign-in identity to a new internal user",
		Long: "Creates the internal user that writes are attributed to. An existing " +
			"identity with the same email is linked; otherwise --password creates one.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log := deps()
			params.Role = domain.Role(role)

			storage, err := server.OpenStorage(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer storage.Backend.Close()

			user, err := createUser(cmd.Context(), storage.Backend, params)
			if err != nil {
				return err
			}

			log.Info("User created",
				zap.String("user_id", user.ID),
				zap.String("auth_id", user.AuthID),
				zap.String("role", string(user.Role)),
			)
			fmt.Fprintln(cmd.OutOrStdout(), user.ID)
			return nil
		},
	}
	create.Flags().StringVar(&params.Email, "email", "", "sign-in email (required)")
	create.Flags().StringVar(&params.Password, "password", "", "password for a new email identity")
	create.Flags().StringVar(&params.Name, "name", "", "display name")
	create.Flags().StringVar(&role, "role", string(domain.RoleAdmin), "admin|supplier")
	create.MarkFlagRequired("email")

	cmd.AddCommand(create)
	return cmd
}

// createUser finds or creates the identity for params.Email and links a user to it
func createUser(ctx context.Context, backend *store.Backend, params userParams) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(params.Email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	if !params.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, params.Role)
	}

	identity, err := backend.Identities.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, store.ErrIdentityNotFound):
		if params.Password == "" {
			return nil, fmt.Errorf("no identity for %s: --password is required to create one", email)
		}
		hash, err := auth.HashPassword(params.Password)
		if err != nil {
			return nil, err
		}
		identity = &domain.AuthIdentity{Email: email, PasswordHash: hash, Provider: domain.ProviderEmail}
		if err := backend.Identities.Create(ctx, identity); err != nil {
			return nil, fmt.Errorf("failed to create identity: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to look up identity: %w", err)
	}

	user := &domain.User{
		AuthID: identity.ID,
		Email:  email,
		Name:   params.Name,
		Role:   params.Role,
	}
	if err := backend.Users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}
