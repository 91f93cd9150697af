package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
)

func (cli *commandLine) reconcile() error {
	rep, err := cli.syncer.Reconcile(context.Background())
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cli.out, "%d projects checked\n", rep.Projects)
	if len(rep.Changed) == 0 && len(rep.DroppedJudges) == 0 && len(rep.Orphans) == 0 {
		_, _ = fmt.Fprintln(cli.out, color.GreenString("assignments are consistent"))
		return nil
	}
	for _, res := range rep.Changed {
		_, _ = fmt.Fprintf(cli.out, "project %s: added %v, removed %v\n", res.ProjectID, res.Added, res.Removed)
	}
	for _, id := range rep.DroppedJudges {
		_, _ = fmt.Fprintln(cli.out, color.YellowString("dropped unknown judge %s", id))
	}
	for _, ref := range rep.Orphans {
		_, _ = fmt.Fprintln(cli.out, color.YellowString("removed orphan reference %s", ref))
	}
	return nil
}
