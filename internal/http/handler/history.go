package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"docvault/internal/model"
	"docvault/internal/policy"
	"docvault/internal/repository"
	"docvault/internal/service"
)

// DocumentHistory godoc
// @Summary History of one document
// @Description Includes entries of soft-deleted documents.
// @Tags history
// @Param id path string true "Document ID"
// @Success 200 {object} service.HistoryListResult
// @Router /documents/{id}/history [get]
func DocumentHistory(docs service.DocumentService, hist service.HistoryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := authorize(c, policy.ViewAny, nil); err != nil {
			return writeServiceError(c, err)
		}
		id, err := parseID(c)
		if err != nil {
			return writeServiceError(c, err)
		}
		limit, offset, err := pageParams(c)
		if err != nil {
			return writeServiceError(c, err)
		}
		doc, err := docs.GetWithTrashed(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		if _, err := authorize(c, policy.View, doc); err != nil {
			return writeServiceError(c, err)
		}

		res, err := hist.ForDocument(c.UserContext(), id, limit, offset)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// QueryHistory godoc
// @Summary Query the audit trail
// @Tags history
// @Param document_id query string false "Document"
// @Param actor_id query string false "Actor"
// @Param action query string false "created, updated or deleted"
// @Param from query string false "RFC3339 lower bound"
// @Param to query string false "RFC3339 upper bound"
// @Success 200 {object} service.HistoryListResult
// @Failure 403 {object} errorPayload
// @Router /history [get]
func QueryHistory(hist service.HistoryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := authorize(c, policy.Audit, nil); err != nil {
			return writeServiceError(c, err)
		}
		limit, offset, err := pageParams(c)
		if err != nil {
			return writeServiceError(c, err)
		}
		from, err := timeQuery(c, "from")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_FROM", "from must be RFC3339")
		}
		to, err := timeQuery(c, "to")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_TO", "to must be RFC3339")
		}

		res, err := hist.Query(c.UserContext(), repository.HistoryFilter{
			DocumentID: c.Query("document_id"),
			ActorID:    c.Query("actor_id"),
			Action:     model.HistoryAction(c.Query("action")),
			From:       from,
			To:         to,
			Limit:      limit,
			Offset:     offset,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

func timeQuery(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
