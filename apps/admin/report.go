package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/trezcool/feria/core/grading"
)

func (cli *commandLine) report(kind string) error {
	rep, err := cli.gradingSvc.Report(context.Background(), kind)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(cli.out, color.CyanString("%s report (%s) generated at %s",
		rep.Kind, rep.Policy, rep.GeneratedAt.Format("2006-01-02 15:04:05")))
	if len(rep.Groups) == 0 {
		_, _ = fmt.Fprintln(cli.out, color.YellowString("no results"))
		return nil
	}

	for _, g := range rep.Groups {
		_, _ = fmt.Fprintln(cli.out)
		_, _ = fmt.Fprintln(cli.out, color.YellowString("== %s ==", g.Label))
		cli.renderResults(rep.Kind, rep.Policy, g.Results)
		for _, sg := range g.SubGroups {
			_, _ = fmt.Fprintln(cli.out, color.YellowString("-- %s --", sg.Course))
			cli.renderResults(rep.Kind, rep.Policy, sg.Results)
		}
	}
	return nil
}

// renderResults prints one ranked table. Grades that a policy cannot compute yet read "pending".
func (cli *commandLine) renderResults(kind grading.Kind, policy string, results []grading.Result) {
	table := tablewriter.NewWriter(cli.out)
	header := []string{"#", "Project", "Course", "Evaluations"}
	switch policy {
	case grading.PolicySumToFive:
		header = append(header, "Internal", "Jury avg", "Final")
	case grading.PolicyIndependent5:
		header = append(header, "Internal /5", "Jury /5")
	default:
		header = append(header, "Internal", "Jury avg")
	}
	header = append(header, "Status")
	if kind == grading.KindAdmin {
		header = append(header, "Judges")
	}
	table.SetHeader(header)

	for _, r := range results {
		sc := r.Scaled
		row := []string{
			strconv.Itoa(r.Rank),
			r.Project.Name,
			r.Project.Course,
			strconv.Itoa(r.Aggregation.Count),
			gradeCell(sc.ScaledInternal, sc.InternalPending),
			gradeCell(sc.ScaledJury, sc.JuryPending),
		}
		if policy == grading.PolicySumToFive {
			row = append(row, gradeCell(sc.FinalGrade, sc.Pending))
		}
		row = append(row, string(sc.Status))
		if kind == grading.KindAdmin {
			row = append(row, strings.Join(r.Judges, ", "))
		}
		table.Append(row)
	}
	table.Render()
}

func gradeCell(g float64, pending bool) string {
	if pending {
		return "pending"
	}
	return strconv.FormatFloat(g, 'f', 2, 64)
}
