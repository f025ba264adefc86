package service

import (
	"context"

	"github.com/civiclink/backend/internal/models"
)

// Registry is the read side of the department store the pipeline depends on.
// Results come back in registry order.
type Registry interface {
	ListDepartments(ctx context.Context) ([]models.Department, error)
	DepartmentsByIssueAndZone(ctx context.Context, issue, zone string) ([]models.Department, error)
	DepartmentsByIssue(ctx context.Context, issue string) ([]models.Department, error)
}
