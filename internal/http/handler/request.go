package handler

import (
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"docvault/internal/model"
	"docvault/internal/service"
)

// fileField is the multipart field carrying the document file.
const fileField = "document"

// documentForm is the writable document payload. Absent fields stay nil.
type documentForm struct {
	Title       *string `json:"title" form:"title"`
	Description *string `json:"description" form:"description"`
	CategoryID  *string `json:"category_id" form:"category_id"`
	Status      *string `json:"status" form:"status"`
}

func (f documentForm) createInput() service.CreateInput {
	return service.CreateInput{
		Title:       deref(f.Title),
		Description: deref(f.Description),
		CategoryID:  deref(f.CategoryID),
		Status:      model.DocumentStatus(deref(f.Status)),
	}
}

func (f documentForm) updateInput() service.UpdateInput {
	in := service.UpdateInput{
		Title:       f.Title,
		Description: f.Description,
		CategoryID:  f.CategoryID,
	}
	if f.Status != nil {
		s := model.DocumentStatus(*f.Status)
		in.Status = &s
	}
	return in
}

// readDocumentForm parses a multipart form (with an optional file under
// "document") or a JSON body. The returned func closes the uploaded file.
func readDocumentForm(c *fiber.Ctx) (documentForm, *service.FileInput, func(), error) {
	var f documentForm
	noop := func() {}

	if !strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEMultipartForm) {
		if len(c.Body()) == 0 {
			return f, nil, noop, nil
		}
		if err := c.BodyParser(&f); err != nil {
			return f, nil, noop, badRequest("INVALID_BODY", "malformed request body")
		}
		return f, nil, noop, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return f, nil, noop, badRequest("INVALID_BODY", "malformed multipart form")
	}
	f.Title = formValue(form, "title")
	f.Description = formValue(form, "description")
	f.CategoryID = formValue(form, "category_id")
	f.Status = formValue(form, "status")

	files := form.File[fileField]
	if len(files) == 0 {
		return f, nil, noop, nil
	}
	fh := files[0]
	r, err := fh.Open()
	if err != nil {
		return f, nil, noop, badRequest("FILE_OPEN_ERROR", "cannot open uploaded file")
	}
	file := &service.FileInput{
		Name:        fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Reader:      r,
	}
	return f, file, func() { closeQuietly(r) }, nil
}

func formValue(form *multipart.Form, key string) *string {
	v, ok := form.Value[key]
	if !ok || len(v) == 0 {
		return nil
	}
	return &v[0]
}

// categoryRequest is the JSON body of category writes.
type categoryRequest struct {
	Name        string  `json:"name" form:"name"`
	Description string  `json:"description" form:"description"`
	ParentID    *string `json:"parent_id" form:"parent_id"`
}

func parseID(c *fiber.Ctx) (string, error) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", badRequest("INVALID_ID", "invalid id format")
	}
	return id, nil
}

// pageParams reads limit and offset. Missing values fall back to the
// service defaults.
func pageParams(c *fiber.Ctx) (int, int, error) {
	limit, err := intQuery(c, "limit")
	if err != nil {
		return 0, 0, badRequest("INVALID_LIMIT", "invalid limit")
	}
	offset, err := intQuery(c, "offset")
	if err != nil {
		return 0, 0, badRequest("INVALID_OFFSET", "invalid offset")
	}
	return limit, offset, nil
}

func intQuery(c *fiber.Ctx, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func closeQuietly(c io.Closer) {
	_ = c.Close()
}
