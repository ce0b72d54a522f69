package logger

import "testing"

func TestMaskAuthorization(t *testing.T) {
	got := MaskAuthorization("Bearer abcdef1234")
	want := "Bearer ****1234"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestMaskBankAccount(t *testing.T) {
	got := MaskBankAccount("2850590940090418135201")
	want := "****5201"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestMaskTaxID(t *testing.T) {
	got := MaskTaxID("20-12345678-3")
	want := "****78-3"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestMaskJSONMasksBankFields(t *testing.T) {
	masked := MaskJSON(map[string]any{
		"cbu":         "2850590940090418135201",
		"holder_name": "ACME VIAJES SRL",
		"amount":      "1500.00",
	})
	if masked["cbu"] != "****5201" {
		t.Fatalf("expected masked cbu, got %v", masked["cbu"])
	}
	if masked["holder_name"] == "ACME VIAJES SRL" {
		t.Fatal("holder name must be masked")
	}
	if masked["amount"] != "1500.00" {
		t.Fatalf("amount should pass through, got %v", masked["amount"])
	}
}

func TestMaskCookie(t *testing.T) {
	got := MaskCookie("session=abcdef1234; other=xyz")
	want := "session=****1234; other=****xyz"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestMaskJSON(t *testing.T) {
	input := map[string]any{
		"password": "hunter2",
		"token":    "abc12345",
		"nested": map[string]any{
			"api_key": "key_12345678",
		},
	}
	masked := MaskJSON(input)
	if masked["password"] != "****ter2" {
		t.Fatalf("expected masked password, got %v", masked["password"])
	}
	if masked["token"] != "****2345" {
		t.Fatalf("expected masked token, got %v", masked["token"])
	}
	nested, ok := masked["nested"].(map[string]any)
	if !ok {
		t.Fatalf("expected nested map")
	}
	if nested["api_key"] != "****5678" {
		t.Fatalf("expected masked api_key, got %v", nested["api_key"])
	}
}
