package guardians

import (
	"context"
	"fmt"
	"testing"

	"github.com/classpulse/classpulse-backend/pkg/db/models"
	"github.com/classpulse/classpulse-backend/pkg/enums"
	pkgerrors "github.com/classpulse/classpulse-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubLinkRepo struct {
	links     []models.GuardianLink
	createErr error
}

func (r *stubLinkRepo) CreateTx(_ context.Context, _ *gorm.DB, link *models.GuardianLink) error {
	if r.createErr != nil {
		return r.createErr
	}
	link.ID = uuid.New()
	r.links = append(r.links, *link)
	return nil
}

func (r *stubLinkRepo) DeleteTx(_ context.Context, _ *gorm.DB, guardianID, studentID uuid.UUID) (bool, error) {
	for i, link := range r.links {
		if link.GuardianID == guardianID && link.StudentID == studentID {
			r.links = append(r.links[:i], r.links[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *stubLinkRepo) ListByGuardian(_ context.Context, guardianID uuid.UUID) ([]models.GuardianLink, error) {
	var out []models.GuardianLink
	for _, link := range r.links {
		if link.GuardianID == guardianID {
			out = append(out, link)
		}
	}
	return out, nil
}

func (r *stubLinkRepo) ListByGuardianTx(ctx context.Context, _ *gorm.DB, guardianID uuid.UUID) ([]models.GuardianLink, error) {
	return r.ListByGuardian(ctx, guardianID)
}

func (r *stubLinkRepo) ListGuardiansByStudent(_ context.Context, studentID uuid.UUID) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for _, link := range r.links {
		if link.StudentID == studentID {
			out = append(out, link.GuardianID)
		}
	}
	return out, nil
}

type stubUserRepo struct {
	users   map[uuid.UUID]*models.User
	mirrors map[uuid.UUID][]uuid.UUID
}

func (r *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if user, ok := r.users[id]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUserRepo) UpdateStudentIDsTx(_ context.Context, _ *gorm.DB, id uuid.UUID, studentIDs []uuid.UUID) error {
	r.mirrors[id] = studentIDs
	return nil
}

type stubStudentRepo struct {
	students map[uuid.UUID]*models.Student
}

func (r *stubStudentRepo) FindByID(_ context.Context, schoolID, id uuid.UUID) (*models.Student, error) {
	if student, ok := r.students[id]; ok && student.SchoolID == schoolID {
		return student, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fixture struct {
	svc      Service
	links    *stubLinkRepo
	users    *stubUserRepo
	schoolID uuid.UUID
	guardian *models.User
	student  *models.Student
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	schoolID := uuid.New()
	guardian := &models.User{ID: uuid.New(), Role: enums.UserRoleParent, SchoolID: schoolID, IsActive: true}
	student := &models.Student{ID: uuid.New(), SchoolID: schoolID, IsActive: true}

	links := &stubLinkRepo{}
	users := &stubUserRepo{
		users:   map[uuid.UUID]*models.User{guardian.ID: guardian},
		mirrors: map[uuid.UUID][]uuid.UUID{},
	}
	studentsRepo := &stubStudentRepo{students: map[uuid.UUID]*models.Student{student.ID: student}}

	svc, err := NewService(ServiceParams{
		Tx:       stubTxRunner{},
		Links:    links,
		Users:    users,
		Students: studentsRepo,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return &fixture{svc: svc, links: links, users: users, schoolID: schoolID, guardian: guardian, student: student}
}

func TestLinkCreatesRowAndSyncsMirror(t *testing.T) {
	f := newFixture(t)

	dto, err := f.svc.Link(context.Background(), f.schoolID, LinkRequest{
		GuardianID: f.guardian.ID,
		StudentID:  f.student.ID,
	})
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if dto.Relationship != "guardian" {
		t.Fatalf("expected default relationship, got %q", dto.Relationship)
	}

	mirror := f.users.mirrors[f.guardian.ID]
	if len(mirror) != 1 || mirror[0] != f.student.ID {
		t.Fatalf("expected mirror to hold the linked student, got %v", mirror)
	}
}

func TestLinkRejectsNonParentAccounts(t *testing.T) {
	f := newFixture(t)
	f.guardian.Role = enums.UserRoleTeacher

	_, err := f.svc.Link(context.Background(), f.schoolID, LinkRequest{
		GuardianID: f.guardian.ID,
		StudentID:  f.student.ID,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLinkRejectsCrossSchoolGuardian(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Link(context.Background(), uuid.New(), LinkRequest{
		GuardianID: f.guardian.ID,
		StudentID:  f.student.ID,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLinkDuplicatePairConflicts(t *testing.T) {
	f := newFixture(t)
	f.links.createErr = fmt.Errorf(`duplicate key value violates unique constraint "ux_guardian_links_pair"`)

	_, err := f.svc.Link(context.Background(), f.schoolID, LinkRequest{
		GuardianID: f.guardian.ID,
		StudentID:  f.student.ID,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestUnlinkRemovesRowAndShrinksMirror(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Link(context.Background(), f.schoolID, LinkRequest{
		GuardianID: f.guardian.ID,
		StudentID:  f.student.ID,
	}); err != nil {
		t.Fatalf("link: %v", err)
	}

	if err := f.svc.Unlink(context.Background(), f.schoolID, f.guardian.ID, f.student.ID); err != nil {
		t.Fatalf("unlink: %v", err)
	}
	if len(f.users.mirrors[f.guardian.ID]) != 0 {
		t.Fatalf("expected empty mirror, got %v", f.users.mirrors[f.guardian.ID])
	}
}

func TestUnlinkMissingPairIsNotFound(t *testing.T) {
	f := newFixture(t)

	err := f.svc.Unlink(context.Background(), f.schoolID, f.guardian.ID, f.student.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLinkedStudentIDs(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Link(context.Background(), f.schoolID, LinkRequest{
		GuardianID: f.guardian.ID,
		StudentID:  f.student.ID,
	}); err != nil {
		t.Fatalf("link: %v", err)
	}

	ids, err := f.svc.LinkedStudentIDs(context.Background(), f.guardian.ID)
	if err != nil {
		t.Fatalf("linked students: %v", err)
	}
	if len(ids) != 1 || ids[0] != f.student.ID {
		t.Fatalf("expected linked student, got %v", ids)
	}
}
