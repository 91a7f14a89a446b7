package journey

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/apperr"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/planner"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
)

type fakePlanner struct {
	plan planner.PlanResult
	err  error
	got  planner.Request
}

func (f *fakePlanner) Plan(_ context.Context, req planner.Request) (planner.PlanResult, error) {
	f.got = req
	return f.plan, f.err
}

func newTestApp(svc *Service, p Planner) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: apperr.ErrorHandler})
	authed := func(c *fiber.Ctx) error {
		c.Locals("user_id", "user-1")
		return c.Next()
	}
	RegisterRoutes(app.Group("/journeys"), svc, p, authed)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func TestCreateJourneyHandler(t *testing.T) {
	mock := newMock(t)
	p := &fakePlanner{plan: connectedPlan()}
	app := newTestApp(NewService(mock, fakeUsers{}, nil, nil), p)

	mock.ExpectBegin()
	expectRouteLock(mock, "r1", "r2")
	mock.ExpectQuery(`INSERT INTO journeys`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "user-1", "A", "C", 25.0, 45.0, 7.0, 2, "connected", "planned").
		WillReturnRows(pgxmock.NewRows([]string{"planned_at"}).AddRow(time.Now()))
	mock.ExpectExec(`INSERT INTO route_connections`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO route_connections`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	resp := postJSON(t, app, "/journeys/", `{"origin":{"rank_id":"A"},"destination":{"rank_id":"C"},"max_hops":2}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var j Journey
	if err := json.NewDecoder(resp.Body).Decode(&j); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if j.Status != StatusPlanned || len(j.Connections) != 2 {
		t.Fatalf("unexpected journey: %+v", j)
	}
	if p.got.Origin.RankID != "A" || p.got.MaxHops == nil || *p.got.MaxHops != 2 {
		t.Fatalf("planner received %+v", p.got)
	}
}

func TestCreateJourneyHandlerPlanError(t *testing.T) {
	p := &fakePlanner{err: apperr.NotFound(apperr.CodeUnknownRank, "rank Z not found")}
	app := newTestApp(NewService(nil, fakeUsers{}, nil, nil), p)

	resp := postJSON(t, app, "/journeys/", `{"origin":{"rank_id":"A"},"destination":{"rank_id":"Z"}}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func expectOwner(mock pgxmock.PgxPoolIface, id, owner string) {
	mock.ExpectQuery(`SELECT user_id FROM journeys WHERE id=\$1`).WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow(owner))
}

func TestTransitionHandler(t *testing.T) {
	mock := newMock(t)
	app := newTestApp(NewService(mock, fakeUsers{}, nil, nil), &fakePlanner{})

	expectOwner(mock, "j-1", "user-1")
	mock.ExpectQuery(`UPDATE journeys SET status='completed'`).
		WithArgs("j-1", []string{"active"}).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT status FROM journeys`).
		WithArgs("j-1").
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow("planned"))

	resp := postJSON(t, app, "/journeys/j-1/transitions", `{"action":"complete"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	var body struct {
		Code      string   `json:"code"`
		LegalNext []string `json:"legal_next_states"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != apperr.CodeInvalidStateTransition || len(body.LegalNext) != 2 {
		t.Fatalf("unexpected body: %+v", body)
	}

	resp = postJSON(t, app, "/journeys/j-1/transitions", `{"action":"fly"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown action, got %d", resp.StatusCode)
	}
}

func TestRatingAndReadHandlers(t *testing.T) {
	mock := newMock(t)
	app := newTestApp(NewService(mock, fakeUsers{}, nil, nil), &fakePlanner{})

	expectOwner(mock, "j-1", "user-1")
	resp := postJSON(t, app, "/journeys/j-1/rating", `{"rating":6}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for rating 6, got %d", resp.StatusCode)
	}

	mock.ExpectQuery(`FROM journeys WHERE user_id=\$1`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows(journeyCols).AddRow(journeyRow("j-1", "planned")...))
	mock.ExpectQuery(`FROM journeys WHERE id=\$1`).
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/journeys/", nil))
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("list journeys: %v", err)
	}
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/journeys/nope", nil))
	if err != nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get missing journey: %v", err)
	}
}

func TestHandlersRejectOtherUsersJourneys(t *testing.T) {
	mock := newMock(t)
	app := newTestApp(NewService(mock, fakeUsers{}, nil, nil), &fakePlanner{})

	expectOwner(mock, "j-9", "user-2")
	resp := postJSON(t, app, "/journeys/j-9/transitions", `{"action":"cancel","reason":"not mine"}`)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 cancelling another user's journey, got %d", resp.StatusCode)
	}

	expectOwner(mock, "j-9", "user-2")
	resp = postJSON(t, app, "/journeys/j-9/rating", `{"rating":1}`)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 rating another user's journey, got %d", resp.StatusCode)
	}

	row := journeyRow("j-9", "planned")
	row[2] = "user-2"
	mock.ExpectQuery(`FROM journeys WHERE id=\$1`).WithArgs("j-9").
		WillReturnRows(pgxmock.NewRows(journeyCols).AddRow(row...))
	mock.ExpectQuery(`FROM route_connections WHERE journey_id=\$1`).WithArgs("j-9").
		WillReturnRows(pgxmock.NewRows([]string{"id", "journey_id", "route_id", "sequence_order", "connection_rank_id",
			"segment_fare", "segment_duration_minutes", "segment_distance_km", "waiting_time_minutes"}))
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/journeys/j-9", nil))
	if err != nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 reading another user's journey: %v", err)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/journeys/?user_id=user-2", nil))
	if err != nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 listing another user's journeys: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
