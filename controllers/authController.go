package controllers

import (
	"context"
	"errors"
	"fmt"

	"pos-backend/middlewares"
	"pos-backend/models"
	"pos-backend/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (ctl *Controller) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := ctl.store.FindUserByUsername(c.UserContext(), req.Username)
	if errors.Is(err, repository.ErrNotFound) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "invalid credentials"})
	}
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if err := user.ComparePassword(req.Password); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "invalid credentials"})
	}

	token, expires, err := ctl.jwt.Generate(user.Id, user.Username)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}

	return c.JSON(fiber.Map{
		"token":      token,
		"expires_at": expires.UTC(),
		"user": fiber.Map{
			"id":       user.Id,
			"username": user.Username,
		},
	})
}

// Logout is stateless: the client drops its token.
func (ctl *Controller) Logout(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "success",
	})
}

func (ctl *Controller) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// EnsureAdmin creates the operator account unless it already exists. An empty
// password leaves the store untouched.
func EnsureAdmin(ctx context.Context, store repository.Store, username, password string) error {
	if password == "" {
		log.Warn().Msg("ADMIN_PASSWORD not set, no operator account seeded")
		return nil
	}
	_, err := store.FindUserByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("find admin: %w", err)
	}

	user := &models.User{Username: username}
	if err := user.SetPassword(password); err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	if err := store.CreateUser(ctx, user); err != nil && !errors.Is(err, repository.ErrDuplicateKey) {
		return fmt.Errorf("create admin: %w", err)
	}
	log.Info().Str("username", username).Msg("operator account seeded")
	return nil
}
