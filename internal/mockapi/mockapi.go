// Package mockapi serves a small reqres-style users API so the suite
// can run offline and test itself without the real service.
package mockapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// User mirrors the reqres user shape.
type User struct {
	ID        int    `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Avatar    string `json:"avatar"`
}

type support struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

var defaultSupport = support{
	URL:  "https://example.com/support",
	Text: "Support text for the mock API.",
}

// seedUsers is the fixed dataset, two pages of six.
var seedUsers = []User{
	{1, "george.bluth@example.com", "George", "Bluth", "https://example.com/img/1.jpg"},
	{2, "janet.weaver@example.com", "Janet", "Weaver", "https://example.com/img/2.jpg"},
	{3, "emma.wong@example.com", "Emma", "Wong", "https://example.com/img/3.jpg"},
	{4, "eve.holt@example.com", "Eve", "Holt", "https://example.com/img/4.jpg"},
	{5, "charles.morris@example.com", "Charles", "Morris", "https://example.com/img/5.jpg"},
	{6, "tracey.ramos@example.com", "Tracey", "Ramos", "https://example.com/img/6.jpg"},
	{7, "michael.lawson@example.com", "Michael", "Lawson", "https://example.com/img/7.jpg"},
	{8, "lindsay.ferguson@example.com", "Lindsay", "Ferguson", "https://example.com/img/8.jpg"},
	{9, "tobias.funke@example.com", "Tobias", "Funke", "https://example.com/img/9.jpg"},
	{10, "byron.fields@example.com", "Byron", "Fields", "https://example.com/img/10.jpg"},
	{11, "george.edwards@example.com", "George", "Edwards", "https://example.com/img/11.jpg"},
	{12, "rachel.howell@example.com", "Rachel", "Howell", "https://example.com/img/12.jpg"},
}

const perPage = 6

// New builds the echo instance serving the mock API under /api.
func New() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())

	e.GET("/api/users", listUsers)
	e.GET("/api/users/:id", getUser)
	e.POST("/api/users", createUser)

	return e
}

// Handler returns the mock API as an http.Handler, for use with
// httptest servers.
func Handler() http.Handler {
	return New()
}

func listUsers(c echo.Context) error {
	page := 1
	if p, err := strconv.Atoi(c.QueryParam("page")); err == nil && p > 0 {
		page = p
	}

	total := len(seedUsers)
	totalPages := (total + perPage - 1) / perPage

	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	data := seedUsers[start:end]

	return c.JSON(http.StatusOK, map[string]any{
		"page":        page,
		"per_page":    perPage,
		"total":       total,
		"total_pages": totalPages,
		"data":        data,
		"support":     defaultSupport,
	})
}

func getUser(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 || id > len(seedUsers) {
		// reqres answers 404 with an empty object for unknown users.
		return c.JSON(http.StatusNotFound, map[string]any{})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data":    seedUsers[id-1],
		"support": defaultSupport,
	})
}

func createUser(c echo.Context) error {
	var payload map[string]any
	if err := c.Bind(&payload); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"error": "malformed request body",
		})
	}

	out := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		out[k] = v
	}
	out["id"] = strconv.Itoa(100 + len(seedUsers))
	out["createdAt"] = time.Now().UTC().Format(time.RFC3339Nano)

	return c.JSON(http.StatusCreated, out)
}
