package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) seedExams() error {
	count, err := cli.examSvc.SeedExamMasters(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "exam masters: %d\n", count)
	return nil
}

func (cli *commandLine) rolloverStatus() error {
	st, err := cli.acadSvc.Status(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "academic year: %d\n", st.CurrentAcademicYear)
	if st.LastUpdateYear.Valid {
		fmt.Fprintf(cli.out, "last rollover: %d (%s)\n", st.LastUpdateYear.Int, st.LastUpdateDatetime.Time.Format("2006-01-02 15:04"))
	} else {
		fmt.Fprintln(cli.out, "last rollover: never")
	}
	if st.CanUpdate {
		fmt.Fprintln(cli.out, "rollover: available")
	} else {
		fmt.Fprintf(cli.out, "rollover: unavailable (%s)\n", st.ErrorMessage.String)
	}
	return nil
}

func (cli *commandLine) rollover() error {
	res, err := cli.acadSvc.Execute(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, res.Message())
	return nil
}
