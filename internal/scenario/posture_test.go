package scenario

import (
	"errors"
	"reflect"
	"testing"
)

func TestParsePostures(t *testing.T) {
	got, err := ParsePostures([]string{"Pessimistic", " optimistic", "pessimistic"})
	if err != nil {
		t.Fatal(err)
	}
	if want := []Posture{Pessimistic, Optimistic}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	got, err = ParsePostures(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []Posture{Realistic}) {
		t.Fatalf("expected realistic default, got %v", got)
	}

	_, err = ParsePostures([]string{"bold"})
	var unknown *UnknownPostureError
	if !errors.As(err, &unknown) || unknown.Posture != "bold" {
		t.Fatalf("expected UnknownPostureError, got %v", err)
	}
}

func TestPosture_Bias(t *testing.T) {
	if Optimistic.Bias(0.1) != 0.1 || Realistic.Bias(0.1) != 0 || Pessimistic.Bias(0.1) != -0.1 {
		t.Fatalf("unexpected biases")
	}
}
