package main

import (
	"context"
	"fmt"

	"github.com/trezcool/feria/core/project"
)

// setGrade records a project's internal grade; a blank grade clears it.
func (cli *commandLine) setGrade(projectID, rawGrade string) error {
	grade, err := project.ParseGrade(rawGrade)
	if err != nil {
		return err
	}
	proj, err := cli.projSvc.SetInternalGrade(context.Background(), projectID, grade)
	if err != nil {
		return err
	}
	if proj.InternalGrade == nil {
		_, _ = fmt.Fprintf(cli.out, "%s: internal grade cleared\n", proj.Name)
	} else {
		_, _ = fmt.Fprintf(cli.out, "%s: internal grade set to %.2f\n", proj.Name, *proj.InternalGrade)
	}
	return nil
}
