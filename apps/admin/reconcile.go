package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/pkg/errors"
)

func (cli *commandLine) reconcile(ctx context.Context) error {
	report, err := cli.reconciler.Reconcile(ctx)
	if err != nil {
		return errors.Wrap(err, "reconciling")
	}

	if isTerminalFunc() {
		tw := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "INTENT\tPROVIDER\tRESOURCE\tFROM\tTO\tERROR")
		for _, it := range report.Items {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", it.IntentID, it.Provider, it.ResourceName, it.From, it.To, it.Err)
		}
		if err = tw.Flush(); err != nil {
			return err
		}
	} else {
		for _, it := range report.Items {
			fmt.Fprintf(cli.out, "intent=%s provider=%s resource=%q from=%s to=%s error=%q\n",
				it.IntentID, it.Provider, it.ResourceName, it.From, it.To, it.Err)
		}
	}
	fmt.Fprintf(cli.out, "examined=%d compensated=%d abandoned=%d failed=%d\n",
		report.Examined, report.Compensated, report.Abandoned, report.Failed)
	return nil
}
