package serializer

import (
	"encoding/json"
	"testing"

	"github.com/quantfabric/fincore/pkg/faults"
	"github.com/quantfabric/fincore/pkg/financial"
)

type settlement struct {
	RunID  string              `json:"run_id"`
	Amount financial.Financial `json:"amount"`
	Parts  []int               `json:"parts"`
}

func TestJSONRoundTrip(t *testing.T) {
	codec := JSON[settlement]()
	in := settlement{
		RunID:  "run-1",
		Amount: financial.MustParse("1234.560"),
		Parts:  []int{3, 1, 2},
	}

	data, err := codec.Serialize(in)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	out, err := codec.Deserialize(data)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}

	if out.RunID != in.RunID {
		t.Errorf("run id changed: %q", out.RunID)
	}
	if !out.Amount.Equals(in.Amount) || out.Amount.Scale() != 3 {
		t.Errorf("amount changed: %s (scale %d)", out.Amount, out.Amount.Scale())
	}
	if len(out.Parts) != 3 || out.Parts[0] != 3 {
		t.Errorf("parts changed: %v", out.Parts)
	}
}

func TestJSONPreservesNumberText(t *testing.T) {
	codec := JSON[map[string]any]()
	data, err := codec.Serialize(map[string]any{"qty": json.Number("0.30000000000000004")})
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	out, err := codec.Deserialize(data)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}

	// Decoding with UseNumber keeps the digits instead of squeezing the
	// value through float64.
	num, ok := out["qty"].(json.Number)
	if !ok {
		t.Fatalf("qty decoded as %T", out["qty"])
	}
	if num.String() != "0.30000000000000004" {
		t.Fatalf("qty = %s", num)
	}
}

func TestDeserializeRejectsEmpty(t *testing.T) {
	codec := JSON[settlement]()
	if _, err := codec.Deserialize(nil); !faults.IsArgument(err) {
		t.Fatalf("empty payload error = %v, want ArgumentError", err)
	}
}

func TestDeserializeRejectsGarbage(t *testing.T) {
	codec := JSON[settlement]()
	if _, err := codec.Deserialize([]byte("{not json")); err == nil {
		t.Fatal("garbage payload deserialized")
	}
}
