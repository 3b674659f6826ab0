package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmhub/models"
)

// newHandlerApp builds a Fiber app with an authenticated test identity in
// the request locals. Handlers under test get a nil database, so these
// cases must fail validation before any query runs.
func newHandlerApp(role string) (*fiber.App, uuid.UUID) {
	app := fiber.New()
	userID := uuid.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		c.Locals("role", role)
		return c.Next()
	})
	return app, userID
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) int {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestCreateLeadValidation(t *testing.T) {
	app, _ := newHandlerApp(models.RoleSalesRep)
	h := NewLeadHandler(nil, nil)
	app.Post("/leads", h.CreateLead)

	cases := map[string]string{
		"malformed body":   `{not json`,
		"missing name":     `{"email":"x@y.com"}`,
		"missing email":    `{"name":"Lead"}`,
		"invalid status":   `{"name":"Lead","email":"x@y.com","status":"exploded"}`,
		"invalid priority": `{"name":"Lead","email":"x@y.com","priority":"urgent"}`,
		"invalid source":   `{"name":"Lead","email":"x@y.com","source":"carrier_pigeon"}`,
		"negative value":   `{"name":"Lead","email":"x@y.com","value":-5}`,
		"bad assignee":     `{"name":"Lead","email":"x@y.com","assigned_to":"nope"}`,
	}
	for name, body := range cases {
		assert.Equal(t, 400, doJSON(t, app, "POST", "/leads", body), name)
	}
}

func TestUpdateLeadValidation(t *testing.T) {
	app, _ := newHandlerApp(models.RoleSalesRep)
	h := NewLeadHandler(nil, nil)
	app.Patch("/leads/:id", h.UpdateLead)

	leadID := uuid.NewString()

	assert.Equal(t, 400, doJSON(t, app, "PATCH", "/leads/not-a-uuid", `{}`), "bad lead id")
	assert.Equal(t, 400, doJSON(t, app, "PATCH", "/leads/"+leadID, `{}`), "empty patch")
	assert.Equal(t, 400, doJSON(t, app, "PATCH", "/leads/"+leadID, `{"name":"  "}`), "blank name")
	assert.Equal(t, 400, doJSON(t, app, "PATCH", "/leads/"+leadID, `{"status":"exploded"}`), "bad status")
	assert.Equal(t, 400, doJSON(t, app, "PATCH", "/leads/"+leadID, `{"value":-1}`), "negative value")
}

func TestListLeadsFilterValidation(t *testing.T) {
	app, _ := newHandlerApp(models.RoleSalesRep)
	h := NewLeadHandler(nil, nil)
	app.Get("/leads", h.ListLeads)

	assert.Equal(t, 400, doJSON(t, app, "GET", "/leads?status=exploded", ""))
	assert.Equal(t, 400, doJSON(t, app, "GET", "/leads?priority=urgent", ""))
	assert.Equal(t, 400, doJSON(t, app, "GET", "/leads?assigned_to=not-a-uuid", ""))
}

func TestDeleteLeadRejectsBadID(t *testing.T) {
	app, _ := newHandlerApp(models.RoleAdmin)
	h := NewLeadHandler(nil, nil)
	app.Delete("/leads/:id", h.DeleteLead)

	assert.Equal(t, 400, doJSON(t, app, "DELETE", "/leads/not-a-uuid", ""))
}

func TestCreateActivityValidation(t *testing.T) {
	app, _ := newHandlerApp(models.RoleSalesRep)
	h := NewActivityHandler(nil, nil)
	app.Post("/leads/:id/activities", h.CreateActivity)

	leadID := uuid.NewString()
	assert.Equal(t, 400, doJSON(t, app, "POST", "/leads/bad-id/activities", `{"type":"call","title":"x"}`), "bad lead id")
	assert.Equal(t, 400, doJSON(t, app, "POST", "/leads/"+leadID+"/activities", `{"type":"call"}`), "missing title")
	assert.Equal(t, 400, doJSON(t, app, "POST", "/leads/"+leadID+"/activities", `{"type":"telepathy","title":"x"}`), "bad type")
}

func TestCreateNoteValidation(t *testing.T) {
	app, _ := newHandlerApp(models.RoleSalesRep)
	h := NewActivityHandler(nil, nil)
	app.Post("/leads/:id/notes", h.CreateNote)

	leadID := uuid.NewString()
	assert.Equal(t, 400, doJSON(t, app, "POST", "/leads/"+leadID+"/notes", `{"content":"   "}`), "blank content")
	assert.Equal(t, 400, doJSON(t, app, "POST", "/leads/bad-id/notes", `{"content":"x"}`), "bad lead id")
}

func TestCreateUserValidation(t *testing.T) {
	app, _ := newHandlerApp(models.RoleAdmin)
	h := NewUserHandler(nil, nil)
	app.Post("/users", h.CreateUser)

	cases := map[string]string{
		"missing email":  `{"name":"User","password":"longenough1"}`,
		"missing name":   `{"email":"u@x.com","password":"longenough1"}`,
		"short password": `{"email":"u@x.com","name":"User","password":"short"}`,
		"invalid role":   `{"email":"u@x.com","name":"User","password":"longenough1","role":"superuser"}`,
	}
	for name, body := range cases {
		assert.Equal(t, 400, doJSON(t, app, "POST", "/users", body), name)
	}
}

func TestUpdateUserRoleRequiresAdmin(t *testing.T) {
	app, _ := newHandlerApp(models.RoleManager)
	h := NewUserHandler(nil, nil)
	app.Put("/users/:id", h.UpdateUser)

	// Managers may edit profiles but not escalate roles.
	status := doJSON(t, app, "PUT", "/users/"+uuid.NewString(), `{"role":"admin"}`)
	assert.Equal(t, 403, status)
}

func TestDeleteUserRejectsSelf(t *testing.T) {
	app, userID := newHandlerApp(models.RoleAdmin)
	h := NewUserHandler(nil, nil)
	app.Delete("/users/:id", h.DeleteUser)

	assert.Equal(t, 400, doJSON(t, app, "DELETE", "/users/"+userID.String(), ""))
	assert.Equal(t, 400, doJSON(t, app, "DELETE", "/users/not-a-uuid", ""))
}

func TestLoginValidation(t *testing.T) {
	app, _ := newHandlerApp(models.RoleSalesRep)
	h := NewAuthHandler(nil, nil)
	app.Post("/auth/login", h.Login)

	assert.Equal(t, 400, doJSON(t, app, "POST", "/auth/login", `{broken`), "malformed body")
	assert.Equal(t, 400, doJSON(t, app, "POST", "/auth/login", `{"email":"","password":""}`), "empty credentials")
	assert.Equal(t, 400, doJSON(t, app, "POST", "/auth/login", `{"email":"x@y.com"}`), "missing password")
}

func TestSaveCollaborativeNoteRejectsBadLeadID(t *testing.T) {
	app, _ := newHandlerApp(models.RoleSalesRep)
	h := NewActivityHandler(nil, nil)
	app.Put("/leads/:id/collaborative-note", h.SaveCollaborativeNote)

	assert.Equal(t, 400, doJSON(t, app, "PUT", "/leads/bad-id/collaborative-note", `{"content":"x"}`))
}
