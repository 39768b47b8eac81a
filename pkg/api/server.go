// Package api exposes the read-only status endpoints the workflow engine and
// operators poll: task records, revision status and a health probe.
package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/timetabler/timetabler/pkg/database"
	"github.com/timetabler/timetabler/pkg/metrics"
	"github.com/timetabler/timetabler/pkg/transmodel"
	"gorm.io/gorm"
)

func SetupServer(listen string) error {
	webApp := fiber.New()

	core := webApp.Group("/core")
	core.Get("/health", health)
	core.Get("/tasks/:id", getTask)
	core.Get("/revisions/:id", getRevision)

	webApp.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	return webApp.Listen(listen)
}

func health(c *fiber.Ctx) error {
	sqlDB, err := database.GlobalGorm.DB()
	if err == nil {
		err = sqlDB.Ping()
	}
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  err.Error(),
		})
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

func getTask(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "task id must be an integer"})
	}

	var task transmodel.DatasetETLTaskResult
	if err := database.GlobalGorm.First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "task not found"})
		}

		return err
	}

	return c.JSON(task)
}

func getRevision(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "revision id must be an integer"})
	}

	var revision transmodel.DatasetRevision
	if err := database.GlobalGorm.First(&revision, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "revision not found"})
		}

		return err
	}

	return c.JSON(revision)
}
