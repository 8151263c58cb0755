package usecase

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

type CategoryUsecase struct {
	categoryRepo repo.CategoryRepository
	auditRepo    repo.AuditLogRepository
}

func NewCategoryUsecase(categoryRepo repo.CategoryRepository, auditRepo repo.AuditLogRepository) *CategoryUsecase {
	return &CategoryUsecase{categoryRepo: categoryRepo, auditRepo: auditRepo}
}

type CategoryInput struct {
	Name string
	Slug string
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

func validateCategoryInput(in CategoryInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return NewBadRequest("name is required")
	}
	if len(in.Name) > 255 {
		return NewBadRequest("name too long")
	}
	if !slugPattern.MatchString(in.Slug) {
		return NewBadRequest("invalid slug")
	}
	return nil
}

func (u *CategoryUsecase) ListCategories(ctx context.Context) ([]model.Category, error) {
	cs, err := u.categoryRepo.ListAll(ctx)
	if err != nil {
		return []model.Category{}, NewInternal("db error")
	}
	return cs, nil
}

func (u *CategoryUsecase) AdminCreateCategory(ctx context.Context, adminUserID int64, in CategoryInput) (model.Category, error) {
	if adminUserID <= 0 {
		return model.Category{}, NewUnauthorized("unauthorized")
	}
	if err := validateCategoryInput(in); err != nil {
		return model.Category{}, err
	}

	created, err := u.categoryRepo.Create(ctx, model.Category{
		Name: strings.TrimSpace(in.Name),
		Slug: in.Slug,
	})
	if err != nil {
		//slugのunique違反はここに落ちる
		return model.Category{}, NewConflict("slug already used")
	}

	if err := u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  adminUserID,
		Action:       model.AuditActionCreateCategory,
		ResourceType: model.AuditResourceCategory,
		ResourceID:   created.ID,
		BeforeJSON:   `{}`,
		AfterJSON:    `{"name":"` + created.Name + `","slug":"` + created.Slug + `"}`,
		CreatedAt:    time.Now(),
	}); err != nil {
		return model.Category{}, NewInternal("db error")
	}

	return created, nil
}

func (u *CategoryUsecase) AdminUpdateCategory(ctx context.Context, adminUserID int64, categoryID int64, in CategoryInput) error {
	if adminUserID <= 0 {
		return NewUnauthorized("unauthorized")
	}
	if categoryID <= 0 {
		return NewBadRequest("invalid id")
	}
	if err := validateCategoryInput(in); err != nil {
		return err
	}

	before, err := u.categoryRepo.FindByID(ctx, categoryID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewNotFound("category not found")
	}
	if err != nil {
		return NewInternal("db error")
	}

	err = u.categoryRepo.Update(ctx, model.Category{
		ID:   categoryID,
		Name: strings.TrimSpace(in.Name),
		Slug: in.Slug,
	})
	if errors.Is(err, repo.ErrNotFound) {
		return NewNotFound("category not found")
	}
	if err != nil {
		return NewInternal("db error")
	}

	if err := u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  adminUserID,
		Action:       model.AuditActionUpdateCategory,
		ResourceType: model.AuditResourceCategory,
		ResourceID:   categoryID,
		BeforeJSON:   `{"name":"` + before.Name + `","slug":"` + before.Slug + `"}`,
		AfterJSON:    `{"name":"` + strings.TrimSpace(in.Name) + `","slug":"` + in.Slug + `"}`,
		CreatedAt:    time.Now(),
	}); err != nil {
		return NewInternal("db error")
	}

	return nil
}

func (u *CategoryUsecase) AdminDeleteCategory(ctx context.Context, adminUserID int64, categoryID int64) error {
	if adminUserID <= 0 {
		return NewUnauthorized("unauthorized")
	}
	if categoryID <= 0 {
		return NewBadRequest("invalid id")
	}

	err := u.categoryRepo.DeleteByID(ctx, categoryID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewNotFound("category not found")
	}
	if err != nil {
		return NewInternal("db error")
	}

	if err := u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  adminUserID,
		Action:       model.AuditActionDeleteCategory,
		ResourceType: model.AuditResourceCategory,
		ResourceID:   categoryID,
		BeforeJSON:   `{}`,
		AfterJSON:    `{}`,
		CreatedAt:    time.Now(),
	}); err != nil {
		return NewInternal("db error")
	}

	return nil
}
