package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lensworks/go-optics-backend/internal/domain"
)

func TestCustomer_CRUD(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	co, err := CreateCompany(ctx, db, &domain.Company{Name: "Acme Insurance"})
	if err != nil {
		t.Fatalf("CreateCompany: %v", err)
	}

	c, err := CreateCustomer(ctx, db, &domain.Customer{
		Name:       "José Pérez",
		SearchName: "jose perez",
		CompanyID:  domain.OptionalID(co.ID),
	})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}

	got, err := GetCustomer(ctx, db, c.ID)
	if err != nil {
		t.Fatalf("GetCustomer: %v", err)
	}
	if got.Company.Name != "Acme Insurance" {
		t.Fatalf("expected company preloaded, got %+v", got.Company)
	}

	if err := UpdateCustomer(ctx, db, c.ID, map[string]any{"phone": "555-0101"}); err != nil {
		t.Fatalf("UpdateCustomer: %v", err)
	}
	if err := DeleteCustomer(ctx, db, c.ID); err != nil {
		t.Fatalf("DeleteCustomer: %v", err)
	}
	if _, err := GetCustomer(ctx, db, c.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestCreateCustomer_WithoutCompany(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	c, err := CreateCustomer(ctx, db, &domain.Customer{Name: "Walk In", SearchName: "walk in"})
	if err != nil {
		t.Fatalf("CreateCustomer without company: %v", err)
	}
	got, err := GetCustomer(ctx, db, c.ID)
	if err != nil {
		t.Fatalf("GetCustomer: %v", err)
	}
	if got.CompanyID != nil {
		t.Fatalf("expected NULL company key, got %+v", got)
	}
}

func TestListCustomersPage_SearchesFoldedName(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	for _, c := range []domain.Customer{
		{Name: "José Pérez", SearchName: "jose perez"},
		{Name: "María García", SearchName: "maria garcia"},
	} {
		cc := c
		if _, err := CreateCustomer(ctx, db, &cc); err != nil {
			t.Fatalf("CreateCustomer: %v", err)
		}
	}

	// The caller folds the query term the same way SearchName was folded.
	n, err := CountCustomers(ctx, db, "perez")
	if err != nil || n != 1 {
		t.Fatalf("CountCustomers = %d, %v", n, err)
	}
	page, err := ListCustomersPage(ctx, db, "perez", 0, 10)
	if err != nil {
		t.Fatalf("ListCustomersPage: %v", err)
	}
	if len(page) != 1 || page[0].Name != "José Pérez" {
		t.Fatalf("unexpected page: %+v", page)
	}
}

func TestPrescriptions_ListedMostRecentFirst(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	c, err := CreateCustomer(ctx, db, &domain.Customer{Name: "Ana", SearchName: "ana"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}

	old := time.Now().UTC().Add(-48 * time.Hour)
	if _, err := AddPrescription(ctx, db, &domain.PrescriptionEntry{CustomerID: c.ID, SphereOD: -1.25, IssuedAt: old}); err != nil {
		t.Fatalf("AddPrescription: %v", err)
	}
	recent, err := AddPrescription(ctx, db, &domain.PrescriptionEntry{CustomerID: c.ID, SphereOD: -1.50})
	if err != nil {
		t.Fatalf("AddPrescription: %v", err)
	}
	if recent.IssuedAt.IsZero() {
		t.Fatal("expected IssuedAt defaulted")
	}

	list, err := ListPrescriptions(ctx, db, c.ID)
	if err != nil {
		t.Fatalf("ListPrescriptions: %v", err)
	}
	if len(list) != 2 || list[0].SphereOD != -1.50 {
		t.Fatalf("unexpected order: %+v", list)
	}
}

func TestCatalog_CreateAndList(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	b, err := CreateBrand(ctx, db, "Ray-Ban")
	if err != nil {
		t.Fatalf("CreateBrand: %v", err)
	}
	if _, err := CreateBrand(ctx, db, "Ray-Ban"); err == nil {
		t.Fatal("expected duplicate brand name to fail")
	}
	if _, err := CreateGroup(ctx, db, "sun"); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if _, err := CreateSubBrand(ctx, db, "Aviator", b.ID); err != nil {
		t.Fatalf("CreateSubBrand: %v", err)
	}
	if _, err := CreateDescription(ctx, db, "metal full-rim"); err != nil {
		t.Fatalf("CreateDescription: %v", err)
	}

	subs, err := ListSubBrands(ctx, db, b.ID)
	if err != nil || len(subs) != 1 {
		t.Fatalf("ListSubBrands: %+v err=%v", subs, err)
	}
	none, err := ListSubBrands(ctx, db, uuid.NewString())
	if err != nil || len(none) != 0 {
		t.Fatalf("expected empty sub-brand scope, got %+v err=%v", none, err)
	}
}

func TestCampaigns_ActiveWindowFilter(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := CreateCampaign(ctx, db, &domain.Campaign{
		Name: "Summer", DiscountPct: 10,
		StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour),
	}); err != nil {
		t.Fatalf("CreateCampaign: %v", err)
	}
	if _, err := CreateCampaign(ctx, db, &domain.Campaign{
		Name: "Winter", DiscountPct: 20,
		StartsAt: now.Add(24 * time.Hour), EndsAt: now.Add(48 * time.Hour),
	}); err != nil {
		t.Fatalf("CreateCampaign: %v", err)
	}

	active, err := ListCampaigns(ctx, db, &now)
	if err != nil {
		t.Fatalf("ListCampaigns: %v", err)
	}
	if len(active) != 1 || active[0].Name != "Summer" {
		t.Fatalf("unexpected active campaigns: %+v", active)
	}

	all, err := ListCampaigns(ctx, db, nil)
	if err != nil || len(all) != 2 {
		t.Fatalf("expected 2 campaigns, got %+v err=%v", all, err)
	}
}
