package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/trezcool/examhall/core/subscription"
)

func (cli *commandLine) reviewPayment(ctx context.Context, id, status, reviewerEmail string) error {
	rp := subscription.ReviewPayment{Status: subscription.PaymentStatus(strings.ToUpper(status))}
	if err := rp.Validate(cli.validate); err != nil {
		return err
	}

	reviewer, err := cli.usrSvc.GetByEmail(ctx, reviewerEmail)
	if err != nil {
		return err
	}
	if !reviewer.IsAdmin() {
		return errNotAdmin
	}

	p, err := cli.subSvc.Review(ctx, reviewer, id, rp)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "payment %s is now %s\n", p.ID, p.Status)
	return nil
}
