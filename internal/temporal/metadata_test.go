package temporal

import (
	"errors"
	"testing"
	"time"
)

func TestStatus_Valid(t *testing.T) {
	for _, s := range []Status{StatusNew, StatusCurrent, StatusHistorical} {
		if !s.Valid() {
			t.Errorf("Status(%q).Valid() = false, want true", s)
		}
	}
	if Status("pending").Valid() {
		t.Error(`Status("pending").Valid() = true, want false`)
	}
	if Status("").Valid() {
		t.Error(`Status("").Valid() = true, want false`)
	}
}

func TestMetadata_Covers(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	m := Metadata{EffectiveStart: start, EffectiveUntil: until}

	if !m.Covers(start) {
		t.Error("Covers(start) = false, want true (interval is closed at start)")
	}
	if m.Covers(until) {
		t.Error("Covers(until) = true, want false (interval is open at until)")
	}
	if !m.Covers(start.Add(time.Hour)) {
		t.Error("Covers(inside) = false, want true")
	}
	if m.Covers(start.Add(-time.Nanosecond)) {
		t.Error("Covers(before) = true, want false")
	}
}

func TestMetadata_Covers_OpenEnded(t *testing.T) {
	m := Metadata{
		EffectiveStart: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		EffectiveUntil: MaxEffective,
	}
	if !m.Covers(time.Date(3000, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Error("open-ended interval should cover the far future")
	}
}

func TestIsOpenEnded(t *testing.T) {
	if !IsOpenEnded(MaxEffective) {
		t.Error("IsOpenEnded(MaxEffective) = false, want true")
	}
	if IsOpenEnded(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Error("IsOpenEnded(ordinary time) = true, want false")
	}
}

func TestValidateInstant(t *testing.T) {
	if err := ValidateInstant(time.Time{}); !errors.Is(err, ErrInvalidEffectiveDate) {
		t.Errorf("ValidateInstant(zero) = %v, want ErrInvalidEffectiveDate", err)
	}
	if err := ValidateInstant(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Errorf("ValidateInstant(valid) = %v, want nil", err)
	}
}

func TestVetoError(t *testing.T) {
	err := NewVeto(VetoMissingEffectiveStart, "orders/42", "effective start is required")
	if !IsVeto(err, VetoMissingEffectiveStart) {
		t.Error("IsVeto(matching code) = false, want true")
	}
	if IsVeto(err, VetoImmutableRevision) {
		t.Error("IsVeto(other code) = true, want false")
	}
	if !IsVeto(err, "") {
		t.Error("IsVeto(any code) = false, want true")
	}
	if IsVeto(errors.New("plain"), "") {
		t.Error("IsVeto(plain error) = true, want false")
	}
}
