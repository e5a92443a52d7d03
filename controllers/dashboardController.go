package controllers

import (
	"github.com/gofiber/fiber/v2"
)

func (ctl *Controller) GetDashboard(c *fiber.Ctx) error {
	return c.JSON(ctl.mirror.Dashboard())
}

// Refresh reloads every product and invoice from the store.
func (ctl *Controller) Refresh(c *fiber.Ctx) error {
	if err := ctl.mirror.Load(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(ctl.mirror.Dashboard())
}
