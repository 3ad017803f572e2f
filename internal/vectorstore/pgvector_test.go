package vectorstore

import "testing"

func TestPgVector(t *testing.T) {
	cases := []struct {
		in   []float64
		want string
	}{
		{nil, "[]"},
		{[]float64{0.5}, "[0.5]"},
		{[]float64{0.1, -0.2, 3}, "[0.1,-0.2,3]"},
	}
	for _, c := range cases {
		if got := pgVector(c.in); got != c.want {
			t.Errorf("pgVector(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}
