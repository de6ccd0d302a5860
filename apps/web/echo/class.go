package echoweb

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mwalimu/darasa/core"
	"github.com/mwalimu/darasa/core/class"
	"github.com/mwalimu/darasa/core/completion"
	"github.com/mwalimu/darasa/core/user"
)

// completion URL expiration bounds, in hours
const (
	minExpirationHours = 1
	maxExpirationHours = 8760 // one year
)

const formDatetimeLayout = "2006-01-02T15:04" // HTML datetime-local

type classPages struct {
	conf          *core.Config
	service       *class.Service
	completionSvc *completion.Service
	qrSvc         core.QRService
}

func registerClassPages(app *echo.Echo, conf *core.Config, svc *class.Service, cplSvc *completion.Service, qrSvc core.QRService) {
	pages := classPages{conf: conf, service: svc, completionSvc: cplSvc, qrSvc: qrSvc}

	app.GET("/classes", pages.classList, requireAuth)

	owner := requireRoles(user.RoleAdmin, user.RoleClassOwner)
	app.GET("/classes/new", pages.classForm, owner)
	app.POST("/classes/new", pages.classCreate, owner)
	app.GET("/classes/import", pages.importForm, owner)
	app.POST("/classes/import", pages.importCSV, owner)
	app.GET("/classes/import/template", pages.importTemplate, owner)
	app.GET("/completion-urls", pages.completionURLForm, owner)
	app.POST("/completion-urls", pages.completionURLCreate, owner)
	app.GET("/completion-urls/qr", pages.completionQR, owner)
}

// Handlers

func (pages *classPages) classList(ctx echo.Context) error {
	filter := class.QueryFilter{
		Search:    ctx.QueryParam("search"),
		Organizer: ctx.QueryParam("organizer"),
	}
	if from := ctx.QueryParam("event_from"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			filter.EventFrom = t
		}
	}
	if to := ctx.QueryParam("event_to"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			filter.EventTo = t
		}
	}

	classes, err := pages.service.Filter(ctx.Request().Context(), filter)
	if err != nil {
		return err
	}
	return ctx.Render(http.StatusOK, "classes.html", map[string]interface{}{
		"Classes": classes,
		"Filter":  filter,
	})
}

func (pages *classPages) classForm(ctx echo.Context) error {
	credits, err := pages.service.QueryAllCredits(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.Render(http.StatusOK, "class_form.html", map[string]interface{}{
		"Credits": credits,
	})
}

func (pages *classPages) classCreate(ctx echo.Context) error {
	eventDt, err := time.Parse(formDatetimeLayout, ctx.FormValue("event_datetime"))
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "event_datetime", Error: "invalid date/time"})
	}
	duration, err := strconv.Atoi(ctx.FormValue("duration_minutes"))
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "duration_minutes", Error: "invalid duration"})
	}
	credits, err := class.ParseCredits(ctx.FormValue("credits"))
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "credits", Error: err.Error()})
	}

	nc := class.NewClass{
		Name:            ctx.FormValue("name"),
		Description:     ctx.FormValue("description"),
		Organizer:       ctx.FormValue("organizer"),
		EventDatetime:   eventDt,
		DurationMinutes: duration,
		Credits:         credits,
	}
	if err = nc.Validate(); err != nil {
		return err
	}

	if _, err = pages.service.Create(ctx.Request().Context(), nc); err != nil {
		return err
	}
	return ctx.Redirect(http.StatusFound, "/classes")
}

func (pages *classPages) importForm(ctx echo.Context) error {
	return ctx.Render(http.StatusOK, "import.html", map[string]interface{}{})
}

func (pages *classPages) importCSV(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "a CSV file is required"})
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	res, err := pages.service.ImportCSV(ctx.Request().Context(), f)
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: err.Error()})
	}
	return ctx.Render(http.StatusOK, "import.html", map[string]interface{}{
		"Result": res,
	})
}

func (pages *classPages) importTemplate(ctx echo.Context) error {
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="classes.csv"`)
	return ctx.Blob(http.StatusOK, "text/csv", []byte(class.CSVTemplate()))
}

func (pages *classPages) completionURLForm(ctx echo.Context) error {
	classes, err := pages.service.QueryAll(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.Render(http.StatusOK, "completion_url.html", map[string]interface{}{
		"Classes": classes,
	})
}

func (pages *classPages) completionURLCreate(ctx echo.Context) error {
	params, err := ctx.FormParams()
	if err != nil {
		return err
	}

	var classIDs []int
	for _, raw := range params["class_ids"] {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "class_ids", Error: "invalid class id"})
		}
		exists, err := pages.service.Exists(ctx.Request().Context(), id)
		if err != nil {
			return err
		}
		if !exists {
			return core.NewValidationError(nil, core.FieldError{Field: "class_ids", Error: "unknown class id " + raw})
		}
		classIDs = append(classIDs, id)
	}
	if len(classIDs) == 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "class_ids", Error: "select at least one class"})
	}

	hours, err := strconv.Atoi(ctx.FormValue("expiration_hours"))
	if err != nil || hours < minExpirationHours || hours > maxExpirationHours {
		return core.NewValidationError(nil, core.FieldError{
			Field: "expiration_hours",
			Error: "expiration must be between 1 and 8760 hours",
		})
	}

	completionURL, err := pages.completionSvc.Tokens().BuildURL(classIDs, pages.conf.BaseURL, hours)
	if err != nil {
		return err
	}
	// the QR endpoint takes the bare token; pull it back out of the URL
	parsed, err := url.Parse(completionURL)
	if err != nil {
		return err
	}
	token := parsed.Query().Get("token")

	classes, err := pages.service.QueryAll(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.Render(http.StatusOK, "completion_url.html", map[string]interface{}{
		"Classes":       classes,
		"CompletionURL": completionURL,
		"Token":         token,
		"Hours":         hours,
	})
}

func (pages *classPages) completionQR(ctx echo.Context) error {
	token := ctx.QueryParam("token")
	if token == "" {
		return errHTTPNotFound
	}
	completionURL := pages.conf.BaseURL + completion.Path + "?token=" + token

	png, err := pages.qrSvc.RenderPNG(completionURL, 256)
	if err != nil {
		return err
	}
	return ctx.Blob(http.StatusOK, "image/png", png)
}
