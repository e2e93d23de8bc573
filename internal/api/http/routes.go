package httpapi

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/harvest-advisor/internal/apperrors"
	"github.com/i474232898/harvest-advisor/internal/common"
	"github.com/i474232898/harvest-advisor/internal/cropinfo"
	"github.com/i474232898/harvest-advisor/internal/csvimport"
	"github.com/i474232898/harvest-advisor/internal/geocode"
	"github.com/i474232898/harvest-advisor/internal/harvest"
	"github.com/i474232898/harvest-advisor/internal/render"
	"github.com/i474232898/harvest-advisor/internal/session"
)

// Planner runs one submission.
type Planner interface {
	Plan(ctx context.Context, req harvest.PlanRequest, sel geocode.SelectionSource) (*harvest.PlanResult, error)
}

// HistoryReader lists persisted queries.
type HistoryReader interface {
	List(ctx context.Context) ([]harvest.QueryRecord, error)
}

// Deps are the collaborators behind the HTTP surface.
type Deps struct {
	Planner    Planner
	Sessions   *session.Registry
	History    HistoryReader
	Guide      *cropinfo.Guide
	Renderer   *render.Renderer
	MapsAPIKey string
	Logger     *slog.Logger
}

const pageTitle = "Harvest Advisor"

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	h := &handler{Deps: deps, logger: deps.Logger.With("component", "httpapi")}

	app.Get("/", h.page)

	v1 := app.Group("/api/v1")
	v1.Post("/plans", h.createPlan)
	v1.Get("/sessions/:id", h.getSession)
	v1.Delete("/sessions/:id", h.deleteSession)
	v1.Get("/history", h.listHistory)
	v1.Get("/crops", h.listCrops)
	v1.Get("/crops/:name", h.getCrop)
	v1.Post("/csv", h.importCSV)
}

type handler struct {
	Deps
	logger *slog.Logger
}

// planForm is the submitted form. Browser posts carry the widget's selection in
// the hidden place fields; JSON clients may send numeric lat/lng instead.
type planForm struct {
	CropType  string   `json:"cropType" form:"cropType"`
	Location  string   `json:"location" form:"location"`
	StartDate string   `json:"startDate" form:"startDate"`
	EndDate   string   `json:"endDate" form:"endDate"`
	MinTemp   string   `json:"minTemp" form:"minTemp"`
	MaxTemp   string   `json:"maxTemp" form:"maxTemp"`
	PlaceID   string   `json:"placeId" form:"placeId"`
	PlaceLat  string   `json:"placeLat" form:"placeLat"`
	PlaceLng  string   `json:"placeLng" form:"placeLng"`
	Lat       *float64 `json:"lat" form:"-"`
	Lng       *float64 `json:"lng" form:"-"`
}

// request copies the fields out of fiber's reused request buffers; the result
// outlives the handler in the session registry.
func (f planForm) request() harvest.PlanRequest {
	return harvest.PlanRequest{
		CropType:  strings.Clone(f.CropType),
		Location:  strings.Clone(f.Location),
		StartDate: strings.Clone(f.StartDate),
		EndDate:   strings.Clone(f.EndDate),
		MinTemp:   strings.Clone(f.MinTemp),
		MaxTemp:   strings.Clone(f.MaxTemp),
	}
}

func (f planForm) selection() geocode.FormSelection {
	lat, lng := f.PlaceLat, f.PlaceLng
	if f.Lat != nil && f.Lng != nil {
		lat = strconv.FormatFloat(*f.Lat, 'f', -1, 64)
		lng = strconv.FormatFloat(*f.Lng, 'f', -1, 64)
	}
	return geocode.NewFormSelection(f.PlaceID, lat, lng)
}

type sessionResponse struct {
	SessionID string              `json:"sessionId"`
	PanelHTML string              `json:"panelHtml"`
	Result    *harvest.PlanResult `json:"result"`
}

func newSessionResponse(s *session.Session) sessionResponse {
	return sessionResponse{SessionID: s.ID, PanelHTML: s.Result.PanelHTML(), Result: s.Result}
}

func (h *handler) page(c *fiber.Ctx) error {
	data := render.PageData{
		Title:      pageTitle,
		MapsAPIKey: h.MapsAPIKey,
		Crops:      h.Guide.All(),
	}
	if id := c.Query("session"); id != "" {
		if s, err := h.Sessions.Get(id); err == nil {
			data.SessionID = s.ID
			data.Panel = template.HTML(s.Result.PanelHTML())
		}
	}

	var buf bytes.Buffer
	if err := h.Renderer.Page(&buf, data); err != nil {
		h.logger.Error("page render failed", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "failed to render page")
	}
	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}

func (h *handler) createPlan(c *fiber.Ctx) error {
	var form planForm
	if err := c.BodyParser(&form); err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidInput, "could not read the submitted form", err)
	}

	req := form.request()
	res, err := h.Planner.Plan(c.UserContext(), req, form.selection())
	if err != nil {
		return err
	}

	s := h.Sessions.Create(req, res)
	return c.Status(fiber.StatusCreated).JSON(newSessionResponse(s))
}

func (h *handler) getSession(c *fiber.Ctx) error {
	s, err := h.Sessions.Get(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "session not found")
	}
	return c.JSON(newSessionResponse(s))
}

func (h *handler) deleteSession(c *fiber.Ctx) error {
	if err := h.Sessions.Delete(c.Params("id")); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "session not found")
		}
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handler) listHistory(c *fiber.Ctx) error {
	records, err := h.History.List(c.UserContext())
	if err != nil {
		h.logger.Error("history read failed", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "failed to read history")
	}
	return c.JSON(fiber.Map{"history": records})
}

func (h *handler) listCrops(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"crops": h.Guide.All()})
}

func (h *handler) getCrop(c *fiber.Ctx) error {
	name, err := url.PathUnescape(c.Params("name"))
	if err != nil {
		name = c.Params("name")
	}
	crop, ok := h.Guide.Lookup(name)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, cropinfo.NotFoundMessage)
	}
	return c.JSON(crop)
}

func (h *handler) importCSV(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return apperrors.Wrap(apperrors.CodeCSVInvalid, "Please choose a CSV file.", err)
	}

	contentType := strings.ToLower(fh.Header.Get("Content-Type"))
	if !strings.HasSuffix(strings.ToLower(fh.Filename), ".csv") &&
		!common.HasAny(contentType, "csv", "text/plain", "ms-excel") {
		return apperrors.Wrap(apperrors.CodeCSVInvalid, "The file does not look like CSV.", nil)
	}

	f, err := fh.Open()
	if err != nil {
		return apperrors.Wrap(apperrors.CodeCSVInvalid, "Could not read the uploaded file.", err)
	}
	defer f.Close()

	table, err := csvimport.Parse(f)
	if err != nil {
		h.logger.Warn("csv import failed", "file", fh.Filename, "error", err)
		return err
	}

	html, err := h.Renderer.CSVTable(table)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"table": table, "html": html})
}
