package client

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"go-crm-reports/internal/common/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func serve(t *testing.T, setup func(app *fiber.App)) string {
	t.Helper()
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	setup(app)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })
	return "http://" + ln.Addr().String()
}

func TestClient_GetReport(t *testing.T) {
	auth := make(chan string, 1)
	base := serve(t, func(app *fiber.App) {
		app.Get("/api/reports/:id", func(c *fiber.Ctx) error {
			auth <- c.Get(fiber.HeaderAuthorization)
			return c.JSON(models.Response{Code: models.CodeOK, Content: models.ReportConfig{ID: c.Params("id"), Title: "Pipeline"}})
		})
	})

	cl := New(base, "tok", time.Second, zap.NewNop())
	cfg, err := cl.GetReport(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", cfg.ID)
	assert.Equal(t, "Pipeline", cfg.Title)
	assert.Equal(t, "Bearer tok", <-auth)
}

func TestClient_ApplicationError(t *testing.T) {
	base := serve(t, func(app *fiber.App) {
		app.Post("/api/reports", func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusBadRequest).JSON(models.Response{Code: models.CodeInvalid, Message: "title is required"})
		})
		app.Delete("/api/reports/:id", func(c *fiber.Ctx) error {
			return c.JSON(models.Response{Code: models.CodeNotFound})
		})
	})
	cl := New(base, "", time.Second, nil)

	_, err := cl.CreateReport(context.Background(), &models.ReportConfig{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, models.CodeInvalid, apiErr.Code)
	assert.Equal(t, fiber.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "title is required", apiErr.UserMessage())

	err = cl.DeleteReport(context.Background(), "r1")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, models.CodeNotFound, apiErr.Code)
	assert.NotEmpty(t, apiErr.UserMessage())
}

func TestClient_CreateReturnsID(t *testing.T) {
	base := serve(t, func(app *fiber.App) {
		app.Post("/api/reports", func(c *fiber.Ctx) error {
			var cfg models.ReportConfig
			if err := c.BodyParser(&cfg); err != nil {
				return err
			}
			return c.Status(fiber.StatusCreated).JSON(models.Response{Content: fiber.Map{"id": "new-" + cfg.Title}})
		})
	})
	id, err := New(base, "", time.Second, nil).CreateReport(context.Background(), &models.ReportConfig{Title: "q1"})
	require.NoError(t, err)
	assert.Equal(t, "new-q1", id)
}

func TestClient_Preview(t *testing.T) {
	base := serve(t, func(app *fiber.App) {
		app.Post("/api/reports/preview", func(c *fiber.Ctx) error {
			return c.JSON(models.Response{
				Content: []fiber.Map{{"id": "l1", "status": "new"}},
				Metadata: models.PreviewMetadata{
					Total: 1,
					Cards: map[string]models.CardData{
						"card1": {Component: models.ComponentOverview, Metrics: map[string]int64{"total": 1}},
					},
				},
			})
		})
	})

	res, err := New(base, "", time.Second, nil).Preview(context.Background(), &models.ReportConfig{})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "l1", res.Rows[0]["id"])
	assert.EqualValues(t, 1, res.Metadata.Total)
	assert.EqualValues(t, 1, res.Metadata.Cards["card1"].Metrics["total"])
}

func TestClient_TransportErrors(t *testing.T) {
	base := serve(t, func(app *fiber.App) {
		app.Get("/api/reports", func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusBadGateway).SendString("upstream down")
		})
		app.Get("/api/reports/:id", func(c *fiber.Ctx) error {
			time.Sleep(200 * time.Millisecond)
			return c.JSON(models.Response{})
		})
	})
	cl := New(base, "", time.Second, nil)

	_, err := cl.ListReports(context.Background())
	var tErr *TransportError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, fiber.StatusBadGateway, tErr.Status)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = cl.GetReport(ctx, "slow")
	require.ErrorAs(t, err, &tErr)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	_, err = New("http://"+addr, "", time.Second, nil).ListReports(context.Background())
	require.ErrorAs(t, err, &tErr)
}
