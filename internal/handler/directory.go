package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/campuseats/campuseats/internal/repository"
)

// DirectoryHandler serves the public browse endpoints: colleges,
// canteens and menus. No auth required; the onboarding wizard reads
// the college list before the student has a home surface.
type DirectoryHandler struct {
	Colleges *repository.CollegeRepo
	Canteens *repository.CanteenRepo
	Menu     *repository.MenuRepo
}

func NewDirectoryHandler(col *repository.CollegeRepo, cn *repository.CanteenRepo, m *repository.MenuRepo) *DirectoryHandler {
	return &DirectoryHandler{Colleges: col, Canteens: cn, Menu: m}
}

// ListColleges returns every college.
func (h *DirectoryHandler) ListColleges(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	out, err := h.Colleges.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, out)
}

// ListCanteens returns the verified canteens of one college.
func (h *DirectoryHandler) ListCanteens(c echo.Context) error {
	collegeID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || collegeID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid college id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	out, err := h.Canteens.ListVerifiedByCollege(ctx, collegeID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, out)
}

// ListMenu returns a canteen's menu.
func (h *DirectoryHandler) ListMenu(c echo.Context) error {
	canteenID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || canteenID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid canteen id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	out, err := h.Menu.ListByCanteen(ctx, canteenID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, out)
}
