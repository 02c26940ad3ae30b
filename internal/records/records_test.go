package records

import "testing"

func TestResults(t *testing.T) {
	for _, result := range []string{ResultWhiteWin, ResultDraw, ResultBlackWin} {
		if !IsDecisiveOrDrawn(result) {
			t.Errorf("expected %q to be accepted", result)
		}
	}
	for _, result := range []string{"", "*", "1-O", "0.5-0.5"} {
		if IsDecisiveOrDrawn(result) {
			t.Errorf("expected %q to be rejected", result)
		}
	}
}

func TestGameKeys(t *testing.T) {
	g := &Game{
		Ref: GameRef{File: "club.pgn", Number: 3},
		Tags: map[string]string{
			TagEvent:     "Club Championship",
			TagEventDate: "2023.09.01",
			TagSection:   "Open",
			TagWhite:     "Smith, J",
			TagBlack:     "Jones, P",
			TagBlackTeam: "B team",
			TagResult:    "1-0",
		},
	}

	white := g.WhiteKey()
	if white.Name != "Smith, J" || white.Event != "Club Championship" {
		t.Errorf("unexpected white key: %+v", white)
	}
	if white.Team != "" {
		t.Errorf("white key picked up black's team: %+v", white)
	}
	black := g.BlackKey()
	if black.Name != "Jones, P" || black.Team != "B team" {
		t.Errorf("unexpected black key: %+v", black)
	}

	event := g.EventKey()
	if event.Event != "Club Championship" || event.Section != "Open" || event.Stage != "" {
		t.Errorf("unexpected event key: %+v", event)
	}
}

func TestPlayerKeyEncodeDecode(t *testing.T) {
	key := PlayerKey{
		Name:      "Smith, J",
		Event:     "Club Championship",
		EventDate: "2023.09.01",
		Section:   "Open",
		FideID:    "1234567",
	}
	decoded, err := DecodePlayerKey(key.Encode())
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded != key {
		t.Errorf("round trip changed key: %+v != %+v", decoded, key)
	}

	if _, err := DecodePlayerKey("too\x1ffew"); err == nil {
		t.Error("expected error for wrong component count")
	}
}

func TestEventKeyEncodeDecode(t *testing.T) {
	key := EventKey{Event: "Open", EventDate: "2024.01.06"}
	decoded, err := DecodeEventKey(key.Encode())
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded != key {
		t.Errorf("round trip changed key: %+v != %+v", decoded, key)
	}
}

func TestKeyStrings(t *testing.T) {
	key := PlayerKey{Name: "Smith, J", Event: "Open", EventDate: "2024.01.06"}
	if got := key.String(); got != "Smith, J, Open, 2024.01.06" {
		t.Errorf("unexpected string form: %q", got)
	}
	empty := EventKey{Event: "Open"}
	if got := empty.String(); got != "Open" {
		t.Errorf("empty components should be omitted, got %q", got)
	}
}

func TestIsPrimary(t *testing.T) {
	p := &Player{Identity: "7", Alias: "7", Known: true}
	if !p.IsPrimary() {
		t.Error("identified record pointing at itself should be primary")
	}
	p.Alias = "3"
	if p.IsPrimary() {
		t.Error("alias of another identity should not be primary")
	}
	p = &Player{Identity: "7", Alias: "7", Known: false}
	if p.IsPrimary() {
		t.Error("new record should not be primary")
	}
}

func TestIdentityKindFor(t *testing.T) {
	cases := map[ItemKind]IdentityKind{
		KindEvent:       IdentityEvent,
		KindTimeControl: IdentityTimeControl,
		KindMode:        IdentityMode,
	}
	for kind, want := range cases {
		if got := IdentityKindFor(kind); got != want {
			t.Errorf("IdentityKindFor(%s) = %s, want %s", kind, got, want)
		}
	}
}
