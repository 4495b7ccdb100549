package hazard

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"rideon-backend/internal/auth"
	"rideon-backend/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
	geojson "github.com/paulmach/go.geojson"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	svc, _ := newTestService(Options{})
	app := fiber.New(fiber.Config{ErrorHandler: apperr.ErrorHandler})
	RegisterRoutes(app.Group("/hazards"), svc, auth.WithUser("rider-1"))
	return app
}

func call(t *testing.T, app *fiber.App, method, path, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	raw, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, raw
}

func TestHazardHandlers(t *testing.T) {
	app := newTestApp(t)

	code, body := call(t, app, http.MethodPost, "/hazards", `{"lat":3,"lng":4,"report_type":"OBSTACLE","description":"fallen tree"}`)
	if code != http.StatusCreated {
		t.Fatalf("report status %d: %s", code, body)
	}
	var created Report
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Status != StatusUnconfirmed || created.UserID != "rider-1" {
		t.Fatalf("unexpected report %+v", created)
	}

	code, body = call(t, app, http.MethodGet, "/hazards/nearby?lat=0&lng=0&radius_km=5", "")
	var near []Report
	if code != http.StatusOK || json.Unmarshal(body, &near) != nil || len(near) != 1 {
		t.Fatalf("nearby status %d: %s", code, body)
	}

	code, body = call(t, app, http.MethodGet, "/hazards/nearby/count?lat=0&lng=0&radius_km=4.9", "")
	if code != http.StatusOK || string(body) != "0" {
		t.Fatalf("count status %d: %s", code, body)
	}

	code, body = call(t, app, http.MethodGet, "/hazards/route?start_lat=0&start_lng=0&end_lat=3&end_lng=4&format=geojson", "")
	if code != http.StatusOK {
		t.Fatalf("route status %d: %s", code, body)
	}
	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil || len(fc.Features) != 1 {
		t.Fatalf("geojson: %v", err)
	}
	if pt := fc.Features[0].Geometry.Point; pt[0] != 4 || pt[1] != 3 {
		t.Fatalf("expected [lng, lat] ordering, got %v", pt)
	}

	code, body = call(t, app, http.MethodPut, "/hazards/"+created.ID+"/status", `{"status":"CONFIRMED"}`)
	if code != http.StatusOK || !bytes.Contains(body, []byte(`"status":"CONFIRMED"`)) {
		t.Fatalf("status update %d: %s", code, body)
	}

	code, body = call(t, app, http.MethodGet, "/hazards/"+created.ID, "")
	if code != http.StatusOK || !bytes.Contains(body, []byte(created.ID)) {
		t.Fatalf("get status %d: %s", code, body)
	}

	for _, path := range []string{"/hazards/mine", "/hazards/recent"} {
		code, body = call(t, app, http.MethodGet, path, "")
		var list []Report
		if code != http.StatusOK || json.Unmarshal(body, &list) != nil || len(list) != 1 {
			t.Fatalf("%s status %d: %s", path, code, body)
		}
	}

	code, body = call(t, app, http.MethodGet, "/hazards/types", "")
	var types []Option
	if code != http.StatusOK || json.Unmarshal(body, &types) != nil || len(types) != 5 {
		t.Fatalf("types status %d: %s", code, body)
	}
	code, body = call(t, app, http.MethodGet, "/hazards/statuses", "")
	if code != http.StatusOK || !bytes.Contains(body, []byte("RESOLVED")) {
		t.Fatalf("statuses status %d: %s", code, body)
	}
}

func TestHazardHandlersErrors(t *testing.T) {
	app := newTestApp(t)

	cases := []struct {
		method, path, body string
		code               int
	}{
		{http.MethodPost, "/hazards", `{"lat":100,"lng":4,"report_type":"OBSTACLE"}`, http.StatusBadRequest},
		{http.MethodPost, "/hazards", `{"lat":1,"lng":4,"report_type":"POTHOLE"}`, http.StatusBadRequest},
		{http.MethodPost, "/hazards", `{"lat":1,"report_type":"ETC"}`, http.StatusBadRequest},
		{http.MethodGet, "/hazards/nearby?lat=0&lng=0", "", http.StatusBadRequest},
		{http.MethodGet, "/hazards/nearby?lat=0&lng=0&radius_km=-2", "", http.StatusBadRequest},
		{http.MethodGet, "/hazards/route?start_lat=0&start_lng=0&end_lat=3", "", http.StatusBadRequest},
		{http.MethodGet, "/hazards/ghost", "", http.StatusNotFound},
		{http.MethodPut, "/hazards/ghost/status", `{"status":"CONFIRMED"}`, http.StatusNotFound},
		{http.MethodPut, "/hazards/ghost/status", `{"status":"FIXED"}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		code, body := call(t, app, tc.method, tc.path, tc.body)
		if code != tc.code {
			t.Fatalf("%s %s: expected %d, got %d (%s)", tc.method, tc.path, tc.code, code, body)
		}
	}
}

func TestFeatureCollectionEmpty(t *testing.T) {
	raw, err := FeatureCollection(nil).MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Contains(raw, []byte(`"features":[]`)) {
		t.Fatalf("expected empty feature list, got %s", raw)
	}
}
