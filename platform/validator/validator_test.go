package validator

import "testing"

type nearbyQuery struct {
	Operation string  `validate:"operation"`
	Furnished string  `validate:"furnished"`
	Latitude  float64 `validate:"latitude"`
}

func TestCustomRules(t *testing.T) {
	v := New()

	if err := v.Struct(nearbyQuery{Operation: "sale", Furnished: "partial", Latitude: -23.5}); err != nil {
		t.Fatalf("expected valid query, got %v", err)
	}
	if err := v.Struct(nearbyQuery{Operation: "lease"}); err == nil {
		t.Fatalf("expected unknown operation to fail")
	}
	if err := v.Struct(nearbyQuery{Furnished: "maybe"}); err == nil {
		t.Fatalf("expected unknown furnished status to fail")
	}
}
