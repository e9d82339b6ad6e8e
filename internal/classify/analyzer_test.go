package classify

import (
	"context"
	"io"
	"testing"

	"github.com/fflcommerce/checkout-backend/internal/restrictions"
	"github.com/fflcommerce/checkout-backend/pkg/db/models"
	"github.com/fflcommerce/checkout-backend/pkg/enums"
	"github.com/fflcommerce/checkout-backend/pkg/logger"
)

type stubRestrictions struct {
	records map[int64]restrictions.Restriction
	err     error
}

func (s *stubRestrictions) GetRestrictions(_ context.Context, _ []int64) (map[int64]restrictions.Restriction, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

func newTestAnalyzer(t *testing.T, stub *stubRestrictions) Analyzer {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	a, err := NewAnalyzer(stub, logg)
	if err != nil {
		t.Fatalf("build analyzer: %v", err)
	}
	return a
}

func line(productID int64) models.CartLine {
	return models.CartLine{ProductID: productID, CartItemKey: "key", Quantity: 1}
}

func TestAnalyzeBucketsEveryLineExactlyOnce(t *testing.T) {
	stub := &stubRestrictions{records: map[int64]restrictions.Restriction{
		1: {ProductID: 1, Class: enums.ProductClassFirearm},
		2: {ProductID: 2, Class: enums.ProductClassAmmo, RestrictedStates: []string{"CA"}},
	}}
	a := newTestAnalyzer(t, stub)

	c := a.Analyze(context.Background(), []models.CartLine{line(1), line(2), line(3)})
	if len(c.Firearms) != 1 || len(c.Ammo) != 1 || len(c.Regular) != 1 {
		t.Fatalf("unexpected buckets: firearms=%d ammo=%d regular=%d", len(c.Firearms), len(c.Ammo), len(c.Regular))
	}
	if c.APIError {
		t.Fatalf("unexpected api error flag")
	}
	total := len(c.Firearms) + len(c.Ammo) + len(c.Regular)
	if total != 3 {
		t.Fatalf("expected every line in exactly one bucket, got %d", total)
	}
}

func TestAnalyzeFailOpenInvariant(t *testing.T) {
	stub := &stubRestrictions{err: restrictions.ErrServiceUnavailable}
	a := newTestAnalyzer(t, stub)

	c := a.Analyze(context.Background(), []models.CartLine{line(1), line(2)})
	if !c.APIError {
		t.Fatalf("expected api error flag")
	}
	if c.HasFirearms() || c.HasAmmo() {
		t.Fatalf("fail-open classification must not report regulated buckets")
	}
	if len(c.Regular) != 2 {
		t.Fatalf("expected all lines regular, got %d", len(c.Regular))
	}
}

func TestAnalyzeEmptyCart(t *testing.T) {
	a := newTestAnalyzer(t, &stubRestrictions{})
	c := a.Analyze(context.Background(), nil)
	if !c.IsEmpty() {
		t.Fatalf("expected empty classification")
	}
}

func TestMixedPredicates(t *testing.T) {
	cases := []struct {
		name                 string
		c                    Classification
		mixed                bool
		firearmsRegularMixed bool
		ammoRegularMixed     bool
	}{
		{
			name:                 "firearm plus regular",
			c:                    Classification{Firearms: []models.CartLine{line(1)}, Regular: []models.CartLine{line(2)}},
			mixed:                true,
			firearmsRegularMixed: true,
		},
		{
			name:             "ammo plus regular",
			c:                Classification{Ammo: []models.CartLine{line(1)}, Regular: []models.CartLine{line(2)}},
			mixed:            true,
			ammoRegularMixed: true,
		},
		{
			name: "firearms only",
			c:    Classification{Firearms: []models.CartLine{line(1)}},
		},
		{
			name: "regular only",
			c:    Classification{Regular: []models.CartLine{line(1)}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.c.IsMixedFFLRegular(); got != tc.mixed {
				t.Fatalf("IsMixedFFLRegular=%v, want %v", got, tc.mixed)
			}
			if got := tc.c.IsFirearmsRegularMixed(); got != tc.firearmsRegularMixed {
				t.Fatalf("IsFirearmsRegularMixed=%v, want %v", got, tc.firearmsRegularMixed)
			}
			if got := tc.c.IsAmmoRegularMixed(); got != tc.ammoRegularMixed {
				t.Fatalf("IsAmmoRegularMixed=%v, want %v", got, tc.ammoRegularMixed)
			}
		})
	}
}

func TestAmmoRestrictedStatesUnion(t *testing.T) {
	stub := &stubRestrictions{records: map[int64]restrictions.Restriction{
		1: {ProductID: 1, Class: enums.ProductClassAmmo, RestrictedStates: []string{"NY", "CA"}},
		2: {ProductID: 2, Class: enums.ProductClassAmmo, RestrictedStates: []string{"CA", "MA"}},
	}}
	a := newTestAnalyzer(t, stub)

	c := a.Analyze(context.Background(), []models.CartLine{line(1), line(2)})
	union := c.AmmoRestrictedStates()
	want := []string{"CA", "MA", "NY"}
	if len(union) != len(want) {
		t.Fatalf("expected union %v, got %v", want, union)
	}
	for i := range want {
		if union[i] != want[i] {
			t.Fatalf("expected union %v, got %v", want, union)
		}
	}

	if !c.RequiresFFLForState("ca") {
		t.Fatalf("expected CA in restricted union")
	}
	if c.RequiresFFLForState("TX") {
		t.Fatalf("TX must not be restricted")
	}
	if c.RequiresFFLForState("") {
		t.Fatalf("blank state must not match")
	}
}
