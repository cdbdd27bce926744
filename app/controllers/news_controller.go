package controllers

import (
	"errors"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/valyala/fasthttp"

	"github.com/ManuelReschke/insights/internal/pkg/apperror"
	"github.com/ManuelReschke/insights/internal/pkg/constants"
	"github.com/ManuelReschke/insights/internal/pkg/news"
	"github.com/ManuelReschke/insights/internal/pkg/usercontext"
)

type NewsController struct {
	news        *news.Service
	uploadsBase string
}

// NewNewsController wires the handlers. uploadsBase is the public prefix for
// image URLs; when empty it is derived from the request.
func NewNewsController(svc *news.Service, uploadsBase string) *NewsController {
	return &NewsController{news: svc, uploadsBase: uploadsBase}
}

func (nc *NewsController) HandleCreate(c *fiber.Ctx) error {
	file, err := imageFile(c)
	if err != nil {
		return err
	}

	item, err := nc.news.Create(c.UserContext(), newsInput(c), file)
	if err != nil {
		return err
	}
	log.Infof("[NewsController] User %d created news %d", usercontext.GetUserID(c), item.ID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "News created successfully",
		"news":    news.NewItem(item, nc.base(c)),
	})
}

func (nc *NewsController) HandleList(c *fiber.Ctx) error {
	page, err := nc.news.List(c.UserContext(), queryInt(c, "page"), queryInt(c, "limit"), c.Query("search"))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"total":      page.Total,
		"page":       page.Page,
		"limit":      page.Limit,
		"totalPages": page.TotalPages,
		"data":       news.NewItems(page.Items, nc.base(c)),
	})
}

func (nc *NewsController) HandleGet(c *fiber.Ctx) error {
	id, err := paramID(c, "News not found")
	if err != nil {
		return err
	}

	item, err := nc.news.Get(c.UserContext(), id)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"news": news.NewItem(item, nc.base(c))})
}

func (nc *NewsController) HandleUpdate(c *fiber.Ctx) error {
	id, err := paramID(c, "News not found")
	if err != nil {
		return err
	}
	file, err := imageFile(c)
	if err != nil {
		return err
	}

	item, err := nc.news.Update(c.UserContext(), id, newsInput(c), file)
	if err != nil {
		return err
	}
	log.Infof("[NewsController] User %d updated news %d", usercontext.GetUserID(c), id)

	return c.JSON(fiber.Map{
		"message": "News updated successfully",
		"news":    news.NewItem(item, nc.base(c)),
	})
}

func (nc *NewsController) HandleDelete(c *fiber.Ctx) error {
	id, err := paramID(c, "News not found")
	if err != nil {
		return err
	}

	if err := nc.news.Delete(c.UserContext(), id); err != nil {
		return err
	}
	log.Infof("[NewsController] User %d deleted news %d", usercontext.GetUserID(c), id)

	return c.JSON(fiber.Map{"message": "Deleted successfully"})
}

func (nc *NewsController) base(c *fiber.Ctx) string {
	if nc.uploadsBase != "" {
		return nc.uploadsBase
	}
	return c.BaseURL() + constants.UploadsRoute
}

func newsInput(c *fiber.Ctx) news.Input {
	return news.Input{
		Name:        c.FormValue("name"),
		Date:        c.FormValue("date"),
		Title:       c.FormValue("title"),
		Tag:         append(formValues(c, "tag"), formValues(c, "tag[]")...),
		Description: c.FormValue("description"),
	}
}

// imageFile returns the uploaded "image" part, or nil when none was sent.
func imageFile(c *fiber.Ctx) (*multipart.FileHeader, error) {
	file, err := c.FormFile("image")
	switch {
	case err == nil:
		return file, nil
	case errors.Is(err, fasthttp.ErrMissingFile), errors.Is(err, fasthttp.ErrNoMultipartForm):
		return nil, nil
	default:
		return nil, apperror.Upload("Could not read uploaded file", err)
	}
}
