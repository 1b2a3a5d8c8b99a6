package money

import (
	"encoding/json"
	"math"
	"strconv"
	"testing"
)

func TestFormat(t *testing.T) {
	cases := map[Paise]string{
		0:          "₹0.00",
		5:          "₹0.05",
		99:         "₹0.99",
		100:        "₹1.00",
		125050:     "₹1250.50",
		-5:         "-₹0.05",
		-250000:    "-₹2500.00",
		1234567890: "₹12345678.90",

		math.MaxInt64: "₹92233720368547758.07",
		math.MinInt64: "-₹92233720368547758.08",
	}
	for in, want := range cases {
		if got := Format(in); got != want {
			t.Fatalf("Format(%d) = %q, want %q", in, got, want)
		}
	}
}

// Formatting is display-only: the value and its request encodings keep the
// original integer paise.
func TestFormatDoesNotLeakIntoRequests(t *testing.T) {
	for _, p := range []Paise{1, 49999, 100000, -7} {
		_ = Format(p)
		b, err := json.Marshal(struct {
			Amount Paise `json:"amount"`
		}{p})
		if err != nil {
			t.Fatal(err)
		}
		var back struct {
			Amount int64 `json:"amount"`
		}
		if err := json.Unmarshal(b, &back); err != nil {
			t.Fatalf("amount is not an integer on the wire: %s", b)
		}
		if back.Amount != int64(p) {
			t.Fatalf("amount changed: %d -> %d", p, back.Amount)
		}
		if want := `{"amount":` + strconv.FormatInt(int64(p), 10) + `}`; string(b) != want {
			t.Fatalf("wire form = %s, want %s", b, want)
		}
	}
}
