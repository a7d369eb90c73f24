package financial

import (
	"encoding/json"
	"testing"

	"github.com/quantfabric/fincore/pkg/faults"
)

func TestJSONRoundTrip(t *testing.T) {
	type line struct {
		Amount Financial `json:"amount"`
		Note   string    `json:"note"`
	}

	in := line{Amount: MustParse("12.50"), Note: "invoice"}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"amount":"12.50","note":"invoice"}` {
		t.Fatalf("unexpected encoding: %s", data)
	}

	var out line
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !out.Amount.Equals(in.Amount) || out.Amount.Scale() != 2 {
		t.Fatalf("round trip changed the value: %s (scale %d)", out.Amount, out.Amount.Scale())
	}
}

func TestJSONAcceptsBareNumbers(t *testing.T) {
	var f Financial
	if err := json.Unmarshal([]byte(`4.20`), &f); err != nil {
		t.Fatalf("bare number: %v", err)
	}
	if f.String() != "4.20" {
		t.Fatalf("bare number parsed as %s", f)
	}

	if err := json.Unmarshal([]byte(`"1e5"`), &f); err == nil {
		t.Fatal("exponent notation must be rejected")
	}
}

func TestScan(t *testing.T) {
	var f Financial
	if err := f.Scan([]byte("123.45")); err != nil {
		t.Fatalf("scan bytes: %v", err)
	}
	if f.String() != "123.45" {
		t.Fatalf("scan bytes gave %s", f)
	}

	if err := f.Scan("-0.01"); err != nil {
		t.Fatalf("scan string: %v", err)
	}
	if f.String() != "-0.01" {
		t.Fatalf("scan string gave %s", f)
	}

	if err := f.Scan(int64(42)); err != nil {
		t.Fatalf("scan int64: %v", err)
	}
	if f.String() != "42" {
		t.Fatalf("scan int64 gave %s", f)
	}

	if err := f.Scan(3.14); !faults.IsArgument(err) {
		t.Fatalf("scan float64 must be rejected, got %v", err)
	}
	if err := f.Scan(nil); !faults.IsArgument(err) {
		t.Fatalf("scan nil must be rejected, got %v", err)
	}
}

func TestValue(t *testing.T) {
	v, err := MustParse("-7.250").Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if v != "-7.250" {
		t.Fatalf("driver value = %v", v)
	}
}
