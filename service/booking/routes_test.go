package booking

import (
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
)

// Every lifecycle action needs a route, the back-office cancel included:
// members cancel via /cancel with a reason, admins via /admin-cancel without.
func TestLifecycleRoutesRegistered(t *testing.T) {
	h := NewBookingHandler(&Service{})
	router := mux.NewRouter()
	h.RegisterRoutes(router)

	cases := []struct {
		method, path string
	}{
		{"POST", "/bookings"},
		{"PATCH", "/bookings/1/cancel"},
		{"PATCH", "/bookings/1/admin-cancel"},
		{"PATCH", "/bookings/1/reschedule"},
		{"PATCH", "/bookings/1/confirm"},
		{"PATCH", "/bookings/1/complete"},
		{"PATCH", "/bookings/1/no-show"},
		{"POST", "/bookings/1/feedback"},
	}
	for _, c := range cases {
		req := httptest.NewRequest(c.method, c.path, nil)
		var match mux.RouteMatch
		if !router.Match(req, &match) {
			t.Errorf("%s %s is not routed", c.method, c.path)
		}
	}
}
