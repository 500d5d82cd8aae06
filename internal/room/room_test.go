package room

import "testing"

func TestTokenSymmetry(t *testing.T) {
	cases := []struct{ pub, a, b int64 }{
		{42, 1, 2},
		{42, 2, 1},
		{1, 100, 100},
		{7, 3, 9000000000},
	}
	for _, c := range cases {
		if got, want := Token(c.pub, c.a, c.b), Token(c.pub, c.b, c.a); got != want {
			t.Errorf("Token(%d,%d,%d) = %q but Token(%d,%d,%d) = %q",
				c.pub, c.a, c.b, got, c.pub, c.b, c.a, want)
		}
	}
}

func TestTokenFormat(t *testing.T) {
	if got := Token(42, 2, 1); got != "42-1-2" {
		t.Fatalf("expected %q, got %q", "42-1-2", got)
	}
}

func TestTokenDistinct(t *testing.T) {
	tokens := map[string]string{}
	cases := []struct {
		name      string
		pub, a, b int64
	}{
		{"pair 1-2 pub 42", 42, 1, 2},
		{"pair 1-3 pub 42", 42, 1, 3},
		{"pair 2-3 pub 42", 42, 2, 3},
		{"pair 1-2 pub 43", 43, 1, 2},
		{"pair 12-3 pub 4", 4, 12, 3},
		{"pair 1-23 pub 4", 4, 1, 23},
	}
	for _, c := range cases {
		token := Token(c.pub, c.a, c.b)
		if prev, ok := tokens[token]; ok {
			t.Errorf("%s collides with %s on token %q", c.name, prev, token)
		}
		tokens[token] = c.name
	}
}
