package health

import (
	"net/http"
	"testing"
)

var allStatuses = []Status{StatusHealthy, StatusDegraded, StatusUnhealthy}

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusHealthy, "HEALTHY"},
		{StatusDegraded, "DEGRADED"},
		{StatusUnhealthy, "UNHEALTHY"},
		{Status(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.status.String(); got != tt.want {
				t.Errorf("Status.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCombine(t *testing.T) {
	tests := []struct {
		a, b Status
		want Status
	}{
		{StatusHealthy, StatusHealthy, StatusHealthy},
		{StatusHealthy, StatusDegraded, StatusDegraded},
		{StatusHealthy, StatusUnhealthy, StatusUnhealthy},
		{StatusDegraded, StatusDegraded, StatusDegraded},
		{StatusDegraded, StatusUnhealthy, StatusUnhealthy},
		{StatusUnhealthy, StatusUnhealthy, StatusUnhealthy},
		{StatusHealthy, Status(42), StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.a.String()+"+"+tt.b.String(), func(t *testing.T) {
			if got := Combine(tt.a, tt.b); got != tt.want {
				t.Errorf("Combine(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestCombine_Commutative(t *testing.T) {
	for _, a := range allStatuses {
		for _, b := range allStatuses {
			if Combine(a, b) != Combine(b, a) {
				t.Errorf("Combine(%v, %v) != Combine(%v, %v)", a, b, b, a)
			}
		}
	}
}

func TestCombine_Associative(t *testing.T) {
	for _, a := range allStatuses {
		for _, b := range allStatuses {
			for _, c := range allStatuses {
				left := Combine(Combine(a, b), c)
				right := Combine(a, Combine(b, c))
				if left != right {
					t.Errorf("(%v+%v)+%v = %v, %v+(%v+%v) = %v", a, b, c, left, a, b, c, right)
				}
			}
		}
	}
}

func TestCombine_UnhealthyAbsorbsHealthyIsIdentity(t *testing.T) {
	for _, s := range allStatuses {
		if got := Combine(StatusUnhealthy, s); got != StatusUnhealthy {
			t.Errorf("Combine(UNHEALTHY, %v) = %v, want UNHEALTHY", s, got)
		}
		if got := Combine(StatusHealthy, s); got != s {
			t.Errorf("Combine(HEALTHY, %v) = %v, want %v", s, got, s)
		}
	}
}

func TestFold_OrderIndependent(t *testing.T) {
	multiset := []Status{StatusHealthy, StatusDegraded, StatusHealthy, StatusDegraded}
	want := StatusDegraded

	permute(multiset, 0, func(p []Status) {
		if got := Fold(p...); got != want {
			t.Errorf("Fold(%v) = %v, want %v", p, got, want)
		}
	})

	withUnhealthy := []Status{StatusDegraded, StatusUnhealthy, StatusHealthy}
	permute(withUnhealthy, 0, func(p []Status) {
		if got := Fold(p...); got != StatusUnhealthy {
			t.Errorf("Fold(%v) = %v, want UNHEALTHY", p, got)
		}
	})
}

func TestFold_Empty(t *testing.T) {
	if got := Fold(); got != StatusHealthy {
		t.Errorf("Fold() = %v, want HEALTHY", got)
	}
}

// permute calls fn with every permutation of s.
func permute(s []Status, k int, fn func([]Status)) {
	if k == len(s) {
		fn(s)
		return
	}
	for i := k; i < len(s); i++ {
		s[k], s[i] = s[i], s[k]
		permute(s, k+1, fn)
		s[k], s[i] = s[i], s[k]
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{"HEALTHY", StatusHealthy, false},
		{"degraded", StatusDegraded, false},
		{" Unhealthy ", StatusUnhealthy, false},
		{"ok", StatusUnhealthy, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStatus(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseStatus(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseStatus(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestStatus_MarshalText(t *testing.T) {
	text, err := StatusDegraded.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText() error = %v", err)
	}
	if string(text) != "DEGRADED" {
		t.Errorf("MarshalText() = %s, want DEGRADED", text)
	}

	if _, err := Status(7).MarshalText(); err == nil {
		t.Error("MarshalText() of invalid status should fail")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		status Status
		want   int
	}{
		{StatusHealthy, http.StatusOK},
		{StatusDegraded, http.StatusOK},
		{StatusUnhealthy, http.StatusServiceUnavailable},
		{Status(9), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		if got := HTTPStatus(tt.status); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.status, got, tt.want)
		}
	}
}
