package handler

import (
	"github.com/gofiber/fiber/v2"

	"docvault/internal/policy"
	"docvault/internal/service"
)

func (r categoryRequest) input() service.CategoryInput {
	return service.CategoryInput{
		Name:        r.Name,
		Description: r.Description,
		ParentID:    r.ParentID,
	}
}

func parseCategoryBody(c *fiber.Ctx) (categoryRequest, error) {
	var req categoryRequest
	if err := c.BodyParser(&req); err != nil {
		return req, badRequest("INVALID_BODY", "malformed request body")
	}
	return req, nil
}

// ListCategories godoc
// @Summary List categories
// @Description Nested tree by default; flat=true returns a flat list.
// @Tags categories
// @Param flat query bool false "Return a flat list"
// @Success 200 {object} map[string][]model.Category
// @Router /categories [get]
func ListCategories(q service.QueryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := authorize(c, policy.ViewAny, nil); err != nil {
			return writeServiceError(c, err)
		}
		fetch := q.CategoryTree
		if c.QueryBool("flat") {
			fetch = q.Categories
		}
		cats, err := fetch(c.UserContext())
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"data": cats})
	}
}

func GetCategory(cats service.CategoryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := authorize(c, policy.ViewAny, nil); err != nil {
			return writeServiceError(c, err)
		}
		id, err := parseID(c)
		if err != nil {
			return writeServiceError(c, err)
		}
		cat, err := cats.Get(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(cat)
	}
}

// CreateCategory godoc
// @Summary Create a category
// @Tags categories
// @Accept json
// @Param body body categoryRequest true "Category"
// @Success 201 {object} model.Category
// @Failure 403 {object} errorPayload
// @Failure 422 {object} errorPayload
// @Router /categories [post]
func CreateCategory(cats service.CategoryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := authorize(c, policy.ManageCategories, nil); err != nil {
			return writeServiceError(c, err)
		}
		req, err := parseCategoryBody(c)
		if err != nil {
			return writeServiceError(c, err)
		}
		cat, err := cats.Create(c.UserContext(), req.input())
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(cat)
	}
}

func UpdateCategory(cats service.CategoryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := authorize(c, policy.ManageCategories, nil); err != nil {
			return writeServiceError(c, err)
		}
		id, err := parseID(c)
		if err != nil {
			return writeServiceError(c, err)
		}
		req, err := parseCategoryBody(c)
		if err != nil {
			return writeServiceError(c, err)
		}
		cat, err := cats.Update(c.UserContext(), id, req.input())
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(cat)
	}
}

func DeleteCategory(cats service.CategoryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := authorize(c, policy.ManageCategories, nil); err != nil {
			return writeServiceError(c, err)
		}
		id, err := parseID(c)
		if err != nil {
			return writeServiceError(c, err)
		}
		if err := cats.Delete(c.UserContext(), id); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
