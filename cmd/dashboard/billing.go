package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/nicetouch/dashboard/internal/bootstrap"
	"github.com/nicetouch/dashboard/internal/domain/billing"
)

type billingOptions struct {
	Action    string
	ReturnURL string
	Checkout  billing.CheckoutRequest
	Open      bool
}

func parseBillingFlags(stderr io.Writer, args []string) (billingOptions, error) {
	opts := billingOptions{Action: "overview"}
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		opts.Action, args = args[0], args[1:]
	}

	fs := flag.NewFlagSet("billing "+opts.Action, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.ReturnURL, "return-url", "", "URL the billing portal returns to")
	fs.StringVar(&opts.Checkout.PriceID, "price", "", "Price to check out")
	fs.StringVar(&opts.Checkout.SuccessURL, "success-url", "", "URL after a successful checkout")
	fs.StringVar(&opts.Checkout.CancelURL, "cancel-url", "", "URL after a cancelled checkout")
	fs.BoolVar(&opts.Open, "open", false, "Open the URL in a browser")

	if err := fs.Parse(args); err != nil {
		return billingOptions{}, err
	}

	switch opts.Action {
	case "overview", "portal":
	case "checkout":
		if opts.Checkout.PriceID == "" {
			return billingOptions{}, errors.New("--price is required for checkout")
		}
	default:
		return billingOptions{}, fmt.Errorf("unknown billing action %q (want overview, portal or checkout)", opts.Action)
	}
	return opts, nil
}

func runBilling(cmdCtx *commandContext, args []string) error {
	opts, err := parseBillingFlags(cmdCtx.Stderr, args)
	if err != nil {
		return err
	}
	return cmdCtx.withApp(func(ctx context.Context, app *bootstrap.App) error {
		switch opts.Action {
		case "portal":
			url, portalErr := app.Billing.PortalURL(ctx, opts.ReturnURL)
			if portalErr != nil {
				return portalErr
			}
			return cmdCtx.presentURL(ctx, url, opts.Open)
		case "checkout":
			url, checkoutErr := app.Billing.CheckoutURL(ctx, opts.Checkout)
			if checkoutErr != nil {
				return checkoutErr
			}
			return cmdCtx.presentURL(ctx, url, opts.Open)
		default:
			overview, overviewErr := app.Billing.Overview(ctx)
			if overviewErr != nil {
				return overviewErr
			}
			return printBillingOverview(cmdCtx.Stdout, overview)
		}
	})
}

func (c *commandContext) presentURL(ctx context.Context, url string, open bool) error {
	if err := writeln(c.Stdout, url); err != nil {
		return err
	}
	if !open || c.opener == nil {
		return nil
	}
	return c.opener(ctx, url)
}

func printBillingOverview(w io.Writer, o billing.Overview) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	tier := o.Tier
	if tier == "" {
		tier = billing.TierFree
	}
	if _, err := fmt.Fprintf(tw, "Plan:\t%s\n", tier); err != nil {
		return err
	}
	if s := o.Subscription; s != nil {
		if _, err := fmt.Fprintf(tw, "Subscription:\t%s (%s)\n", s.ID, s.Status); err != nil {
			return err
		}
		if !s.CurrentPeriodEnd.IsZero() {
			label := "Renews"
			if s.CancelAtPeriodEnd {
				label = "Ends"
			}
			if _, err := fmt.Fprintf(tw, "%s:\t%s\n", label, s.CurrentPeriodEnd.Format(time.DateOnly)); err != nil {
				return err
			}
		}
	} else if _, err := fmt.Fprintln(tw, "Subscription:\tnone"); err != nil {
		return err
	}
	if c := o.Customer; c != nil {
		if _, err := fmt.Fprintf(tw, "Customer:\t%s <%s>\n", c.ID, c.Email); err != nil {
			return err
		}
	}
	return tw.Flush()
}
