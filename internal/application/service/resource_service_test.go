package service

import (
	"context"
	"errors"
	"testing"

	"github.com/aflo-dev/aflo/internal/application/port"
	"github.com/aflo-dev/aflo/internal/domain/apperr"
	"github.com/aflo-dev/aflo/internal/domain/entity"
)

func TestResourceServiceAdminWrites(t *testing.T) {
	repo := &mockCatalogRepo{}
	svc := NewResourceService[entity.Catalog, *entity.Catalog](repo, "catalogs", PaginationConfig{DefaultLimit: 20, MaxLimit: 100}, &mockLogger{})
	ctx := context.Background()

	if err := svc.Create(ctx, member, &entity.Catalog{CatalogName: "basic"}); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("member create: expected Forbidden, got %v", err)
	}
	if err := svc.Delete(ctx, member, "c-1"); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("member delete: expected Forbidden, got %v", err)
	}

	catalog := &entity.Catalog{Record: entity.Record{ID: "client-chosen"}, CatalogName: "basic"}
	if err := svc.Create(ctx, admin, catalog); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if catalog.ID == "" || catalog.ID == "client-chosen" {
		t.Errorf("id = %q, want a generated id", catalog.ID)
	}

	update := &entity.Catalog{CatalogName: "premium"}
	if err := svc.Update(ctx, admin, catalog.ID, update); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if len(repo.updated) != 1 || repo.updated[0].ID != catalog.ID {
		t.Errorf("update did not target %s", catalog.ID)
	}
}

func TestResourceServiceListAppliesPagination(t *testing.T) {
	repo := &mockCatalogRepo{}
	svc := NewResourceService[entity.Catalog, *entity.Catalog](repo, "catalogs", PaginationConfig{DefaultLimit: 20, MaxLimit: 100}, &mockLogger{})

	_, _, err := svc.List(context.Background(), port.ResourceFilter{Equals: map[string]string{"region": "jp"}})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if repo.filter.Page.Limit != 20 || repo.filter.Equals["region"] != "jp" {
		t.Errorf("filter = %+v", repo.filter)
	}
}
