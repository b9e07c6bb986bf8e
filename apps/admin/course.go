package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/lesson"
)

// addCourse registers a course owned by another service so that lessons can be scheduled for it.
func (cli *commandLine) addCourse(ctx context.Context, tenantID, name, id string) error {
	if _, err := uuid.Parse(tenantID); err != nil {
		return errors.Errorf("invalid tenant ID %q", tenantID)
	}
	if id != "" {
		if _, err := uuid.Parse(id); err != nil {
			return errors.Errorf("invalid course ID %q", id)
		}
	}

	crs, err := cli.courses.CreateCourse(ctx, lesson.Course{
		ID:        id,
		TenantID:  tenantID,
		Name:      core.CleanString(name),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	fmt.Fprintf(cli.out, "course %q created: %s\n", crs.Name, crs.ID)
	return nil
}
