package eval

import "testing"

func TestEval_ComparisonsAndLogic(t *testing.T) {
	vars := map[string]any{
		"cost":   12500.0,
		"failed": false,
	}

	ok, err := Eval(`cost>10000 && !failed`, vars)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatalf("expected true")
	}
}

func TestEval_StringEquality(t *testing.T) {
	vars := map[string]any{"status": "failed"}

	ok, err := Eval(`status=="failed"`, vars)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatalf("expected true")
	}
}

func TestValidate_BlocksArithmetic(t *testing.T) {
	vars := map[string]any{"x": 1}

	_, err := Eval(`x+1==2`, vars)
	if err == nil {
		t.Fatalf("expected error")
	}

	_, err = Eval(`x-1==0`, vars)
	if err == nil {
		t.Fatalf("expected error for binary minus")
	}
}

func TestValidate_AllowsDecimalAndNegativeLiterals(t *testing.T) {
	vars := map[string]any{"probability": 0.45, "delta": -0.2}

	ok, err := Eval(`probability < 0.5 && delta >= -0.25`, vars)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatalf("expected true")
	}
}

func TestValidate_BlocksFunctionCall(t *testing.T) {
	vars := map[string]any{"x": 1}

	_, err := Eval(`len(x)==1`, vars)
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestValidate_BlocksMemberAccess(t *testing.T) {
	if err := Validate(`action.cost > 1`); err == nil {
		t.Fatalf("expected error")
	}
}

func TestValidate_AllowsParentheses(t *testing.T) {
	vars := map[string]any{"a": true, "b": false, "c": true}

	ok, err := Eval(`a && (b || c)`, vars)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatalf("expected true")
	}
}

func TestCompile_RejectsUnknownVariables(t *testing.T) {
	env := map[string]any{"cost": 0.0}

	if _, err := Compile(`budget > 10`, env); err == nil {
		t.Fatalf("expected compile error for unknown variable")
	}
}

func TestCompiled_EvalReusesProgram(t *testing.T) {
	env := map[string]any{"cost": 0.0, "status": ""}

	c, err := Compile(`status == "succeeded" && cost > 100`, env)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		vars map[string]any
		want bool
	}{
		{map[string]any{"cost": 150.0, "status": "succeeded"}, true},
		{map[string]any{"cost": 50.0, "status": "succeeded"}, false},
		{map[string]any{"cost": 150.0, "status": "failed"}, false},
	}
	for _, tc := range cases {
		got, err := c.Eval(tc.vars)
		if err != nil {
			t.Fatal(err)
		}
		if got != tc.want {
			t.Fatalf("vars=%v: expected %v, got %v", tc.vars, tc.want, got)
		}
	}
}

func TestCompile_EmptyConditionAlwaysHolds(t *testing.T) {
	c, err := Compile("  ", nil)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := c.Eval(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatalf("expected empty condition to hold")
	}
}
