package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/coursecatalog/catalog-api/internal/core/domain"
	"github.com/coursecatalog/catalog-api/internal/core/ports"
)

// RowReader converts an uploaded spreadsheet into raw rows.
type RowReader interface {
	Read(r io.Reader) ([]domain.RawRow, error)
}

// CourseHandler handles HTTP requests for course operations.
type CourseHandler struct {
	service ports.CourseService
	sheets  RowReader
	maxRows int
}

// NewCourseHandler builds the handler. maxRows caps the rows of one JSON
// batch; the spreadsheet reader applies the same cap. maxRows <= 0 means no
// limit.
func NewCourseHandler(service ports.CourseService, sheets RowReader, maxRows int) *CourseHandler {
	return &CourseHandler{service: service, sheets: sheets, maxRows: maxRows}
}

// List handles GET /v1/courses.
//
// @Summary      List courses
// @Description  Members see their own courses; admins see all or filter by owner.
// @Tags         courses
// @Produce      json
// @Security     BearerAuth
// @Param        owner  query     string  false  "Owner user id (admin only)"
// @Success      200    {object}  listCoursesResponse
// @Failure      401    {object}  errorBody
// @Failure      403    {object}  errorBody
// @Router       /v1/courses [get]
func (h *CourseHandler) List(c echo.Context) error {
	who, err := callerIdentity(c)
	if err != nil {
		return err
	}

	courses, err := h.service.List(c.Request().Context(), who, c.QueryParam("owner"))
	if err != nil {
		return err
	}

	items := make([]courseResponse, 0, len(courses))
	for _, course := range courses {
		items = append(items, toCourseResponse(course))
	}
	return c.JSON(http.StatusOK, listCoursesResponse{Items: items, Total: len(items)})
}

// Get handles GET /v1/courses/:id.
//
// @Summary      Get a course
// @Tags         courses
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Course id"
// @Success      200  {object}  courseResponse
// @Failure      403  {object}  errorBody
// @Failure      404  {object}  errorBody
// @Router       /v1/courses/{id} [get]
func (h *CourseHandler) Get(c echo.Context) error {
	who, err := callerIdentity(c)
	if err != nil {
		return err
	}

	course, err := h.service.Get(c.Request().Context(), c.Param("id"), who)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCourseResponse(course))
}

// Add handles POST /v1/courses.
//
// @Summary      Add a course
// @Description  The body is a raw row keyed like the spreadsheet columns (n, Title, Instructor, Hours, ...).
// @Tags         courses
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      object  true  "Raw course row"
// @Success      201   {object}  courseResponse
// @Failure      409   {object}  errorBody
// @Failure      422   {object}  errorBody
// @Router       /v1/courses [post]
func (h *CourseHandler) Add(c echo.Context) error {
	who, err := callerIdentity(c)
	if err != nil {
		return err
	}

	var row domain.RawRow
	if err := decodeJSON(c, &row); err != nil {
		return err
	}

	course, err := h.service.Add(c.Request().Context(), row, who)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toCourseResponse(course))
}

// Batch handles POST /v1/courses/batch.
//
// @Summary      Add many courses
// @Description  Every row succeeds or fails on its own; failures are reported per item.
// @Tags         courses
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      batchRequest   true  "Rows to import"
// @Success      200   {object}  batchResponse
// @Failure      400   {object}  errorBody
// @Failure      500   {object}  batchResponse
// @Router       /v1/courses/batch [post]
func (h *CourseHandler) Batch(c echo.Context) error {
	who, err := callerIdentity(c)
	if err != nil {
		return err
	}

	var req batchRequest
	if err := decodeJSON(c, &req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if h.maxRows > 0 && len(req.Rows) > h.maxRows {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("rows must contain at most %d entries", h.maxRows))
	}

	return h.importRows(c, req.Rows, who)
}

// Import handles POST /v1/courses/import.
//
// @Summary      Import courses from a spreadsheet
// @Description  Reads the first sheet of an .xlsx upload; the header row names the columns.
// @Tags         courses
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file  formData  file  true  "Workbook (.xlsx)"
// @Success      200   {object}  batchResponse
// @Failure      400   {object}  errorBody
// @Failure      422   {object}  errorBody
// @Router       /v1/courses/import [post]
func (h *CourseHandler) Import(c echo.Context) error {
	who, err := callerIdentity(c)
	if err != nil {
		return err
	}

	header, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	src, err := header.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable upload")
	}
	defer src.Close()

	rows, err := h.sheets.Read(src)
	if err != nil {
		return err
	}
	return h.importRows(c, rows, who)
}

func (h *CourseHandler) importRows(c echo.Context, rows []domain.RawRow, who domain.Identity) error {
	result, err := h.service.Import(c.Request().Context(), rows, who)
	return respondBatch(c, result, err)
}

// respondBatch writes per-item outcomes. An aborted batch still reports the
// items that settled before the abort.
func respondBatch(c echo.Context, result *ports.BatchResult, err error) error {
	if err != nil {
		if result != nil && errors.Is(err, domain.ErrBatchAborted) {
			resp := toBatchResponse(result)
			resp.Error = domain.DetailOf(err)
			return c.JSON(http.StatusInternalServerError, resp)
		}
		return err
	}
	return c.JSON(http.StatusOK, toBatchResponse(result))
}

// Update handles PATCH /v1/courses/:id.
//
// @Summary      Update a course
// @Description  Only whitelisted fields are applied; other keys are ignored.
// @Tags         courses
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string  true  "Course id"
// @Param        body  body      object  true  "Sparse field map"
// @Success      200   {object}  courseResponse
// @Failure      403   {object}  errorBody
// @Failure      404   {object}  errorBody
// @Failure      409   {object}  errorBody
// @Failure      422   {object}  errorBody
// @Router       /v1/courses/{id} [patch]
func (h *CourseHandler) Update(c echo.Context) error {
	who, err := callerIdentity(c)
	if err != nil {
		return err
	}

	var updates map[string]any
	if err := decodeJSON(c, &updates); err != nil {
		return err
	}

	course, err := h.service.Update(c.Request().Context(), c.Param("id"), updates, who)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCourseResponse(course))
}

// Delete handles DELETE /v1/courses/:id.
//
// @Summary      Delete a course
// @Tags         courses
// @Security     BearerAuth
// @Param        id  path  string  true  "Course id"
// @Success      204
// @Failure      403  {object}  errorBody
// @Failure      404  {object}  errorBody
// @Router       /v1/courses/{id} [delete]
func (h *CourseHandler) Delete(c echo.Context) error {
	who, err := callerIdentity(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), c.Param("id"), who); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteAll handles DELETE /v1/courses.
//
// @Summary      Delete all of the caller's courses
// @Tags         courses
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  batchResponse
// @Router       /v1/courses [delete]
func (h *CourseHandler) DeleteAll(c echo.Context) error {
	who, err := callerIdentity(c)
	if err != nil {
		return err
	}

	result, err := h.service.DeleteAll(c.Request().Context(), who)
	return respondBatch(c, result, err)
}

// Reconcile handles POST /v1/admin/users/:id/reconcile.
//
// @Summary      Repair a user's course back-references
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  reconcileResponse
// @Failure      403  {object}  errorBody
// @Failure      404  {object}  errorBody
// @Router       /v1/admin/users/{id}/reconcile [post]
func (h *CourseHandler) Reconcile(c echo.Context) error {
	who, err := callerIdentity(c)
	if err != nil {
		return err
	}

	report, err := h.service.Reconcile(c.Request().Context(), c.Param("id"), who)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReconcileResponse(report))
}
