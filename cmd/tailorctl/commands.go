package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Lixing-Zhang/tailortech/internal/catalog"
	"github.com/Lixing-Zhang/tailortech/internal/measurement"
	"github.com/Lixing-Zhang/tailortech/internal/models"
	"github.com/Lixing-Zhang/tailortech/internal/pricing"
	"github.com/Lixing-Zhang/tailortech/internal/session"
	"github.com/Lixing-Zhang/tailortech/internal/workflow"
)

func newFlags(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}

// pairs collects repeated -m name=value flags
type pairs []string

func (p *pairs) String() string { return strings.Join(*p, ",") }

func (p *pairs) Set(v string) error {
	if !strings.Contains(v, "=") {
		return fmt.Errorf("expected name=value, got %q", v)
	}
	*p = append(*p, v)
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	if err := newFlags("login").Parse(args); err != nil {
		return err
	}
	id, err := a.signIn(ctx)
	if err != nil {
		return err
	}

	switch v := id.(type) {
	case session.Client:
		fmt.Fprintf(a.out, "signed in as client %s (#%d)\nbalance: %s  points: %d\n", v.Name, v.ID, v.Money.StringFixed(2), v.Points)
	case session.Tailor:
		fmt.Fprintf(a.out, "signed in as tailor %s (#%d)\nearnings: %s  rating: %.1f\n", v.Name, v.ID, v.Money.StringFixed(2), v.Rating)
	}
	return nil
}

func (a *app) topUp(ctx context.Context, args []string) error {
	fs := newFlags("topup")
	amount := fs.String("amount", "", "amount to add to the balance")
	if err := fs.Parse(args); err != nil {
		return err
	}
	value, err := decimal.NewFromString(*amount)
	if err != nil || !value.IsPositive() {
		return fmt.Errorf("amount must be a positive number, got %q", *amount)
	}

	if _, err := a.signInClient(ctx); err != nil {
		return err
	}
	id, err := a.session.TopUp(ctx, value)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "balance: %s\n", id.(session.Client).Money.StringFixed(2))
	return nil
}

func (a *app) tailors(ctx context.Context, args []string) error {
	fs := newFlags("tailors")
	text := fs.String("q", "", "match name or address")
	speciality := fs.String("speciality", "", "category, e.g. Tops or \"Tote Bags\"")
	if err := fs.Parse(args); err != nil {
		return err
	}

	q := catalog.Query{Text: *text}
	if *speciality != "" {
		c, err := models.ParseCategory(*speciality)
		if err != nil {
			return err
		}
		q.Speciality = c
	}

	tailors, err := catalog.NewService(a.api).SearchTailors(ctx, q)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tADDRESS\tRATING\tSPECIALITIES")
	for _, t := range tailors {
		specs := make([]string, 0, len(t.Specialities))
		for _, sp := range catalog.Specialities(t) {
			specs = append(specs, fmt.Sprintf("%s %s", sp.Category, sp.Price.StringFixed(0)))
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.1f\t%s\n", t.ID, t.Name, t.Address, t.Rating, strings.Join(specs, ", "))
	}
	return tw.Flush()
}

func (a *app) coupons(ctx context.Context, args []string) error {
	if err := newFlags("coupons").Parse(args); err != nil {
		return err
	}
	client, err := a.signInClient(ctx)
	if err != nil {
		return err
	}

	owned, err := a.api.ListCoupons(ctx, client.ID)
	if err != nil {
		return err
	}
	promos, err := a.api.Promos(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "points: %d\n\nOWNED\tDISCOUNT\tUSES\n", client.Points)
	for _, c := range owned {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", c.Code, c.DiscountAmount.StringFixed(0), c.Quantity)
	}
	fmt.Fprintln(tw, "\nPROMO\tDISCOUNT\tPOINTS")
	for _, p := range promos {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", p.Code, p.Discount.StringFixed(0), p.PointsCost)
	}
	return tw.Flush()
}

// resolver quotes with the configured shipping fee, or the server's when unset
func (a *app) resolver(ctx context.Context) (pricing.Resolver, error) {
	if a.cfg.ShippingFee != "" {
		fee, err := decimal.NewFromString(a.cfg.ShippingFee)
		if err != nil {
			return pricing.Resolver{}, fmt.Errorf("shipping_fee: %w", err)
		}
		return pricing.NewResolver(fee), nil
	}
	info, err := a.api.Pricing(ctx)
	if err != nil {
		return pricing.Resolver{}, err
	}
	return pricing.NewResolver(info.ShippingFee), nil
}

func (a *app) request(ctx context.Context, args []string) error {
	fs := newFlags("request")
	tailorID := fs.Int64("tailor", 0, "tailor ID")
	categoryName := fs.String("category", "", "garment category")
	desc := fs.String("desc", "", "details for the tailor")
	code := fs.String("coupon", "", "coupon code to apply")
	var values pairs
	fs.Var(&values, "m", "measurement name=value, repeatable")
	if err := fs.Parse(args); err != nil {
		return err
	}

	category, err := models.ParseCategory(*categoryName)
	if err != nil {
		return err
	}
	set := measurement.Set{}
	for _, kv := range values {
		name, raw, _ := strings.Cut(kv, "=")
		v, err := measurement.ParseValue(category, strings.TrimSpace(name), raw)
		if err != nil {
			return err
		}
		set = measurement.SetValue(set, strings.TrimSpace(name), v)
	}

	client, err := a.signInClient(ctx)
	if err != nil {
		return err
	}
	tailor, err := catalog.NewService(a.api).Tailor(ctx, *tailorID)
	if err != nil {
		return err
	}
	resolver, err := a.resolver(ctx)
	if err != nil {
		return err
	}

	w, err := workflow.New(workflow.Deps{API: a.api, Resolver: resolver, Log: a.log.Named("workflow")}, client, *tailor, category)
	if err != nil {
		return err
	}
	res, err := w.Run(ctx, workflow.Plan{Measurements: set, Description: *desc, CouponCode: *code})
	if err != nil {
		var f *workflow.Failure
		if errors.As(err, &f) && f.Kind == workflow.KindValidation {
			if missing := measurement.Missing(category, w.Measurements()); len(missing) > 0 {
				return &workflow.Failure{
					Kind:    f.Kind,
					Message: fmt.Sprintf("%s (missing: %s)", f.Message, strings.Join(missing, ", ")),
					Err:     f.Err,
				}
			}
		}
		return err
	}

	q := res.Quote
	fmt.Fprintf(a.out, "request #%d submitted to %s\n", res.RequestID, tailor.Name)
	fmt.Fprintf(a.out, "subtotal %s  discount %s  shipping %s  total %s\n",
		q.Subtotal.StringFixed(2), q.Discount.StringFixed(2), q.Shipping.StringFixed(2), q.Total.StringFixed(2))
	fmt.Fprintf(a.out, "payment %s\n", res.PaymentID)
	return nil
}

func (a *app) checkout(ctx context.Context, args []string) error {
	fs := newFlags("checkout")
	ids := fs.String("products", "", "comma separated product IDs; defaults to the cart")
	code := fs.String("coupon", "", "coupon code to apply")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := a.signInClient(ctx)
	if err != nil {
		return err
	}

	products, err := a.api.GetCart(ctx, client.ID)
	if err != nil {
		return err
	}
	if *ids != "" {
		products, err = a.pickProducts(ctx, *ids)
		if err != nil {
			return err
		}
	}

	resolver, err := a.resolver(ctx)
	if err != nil {
		return err
	}
	res, err := workflow.Checkout(ctx, workflow.Deps{API: a.api, Resolver: resolver, Log: a.log.Named("checkout")}, client, products, *code)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "order placed: transactions %v, total %s, payment %s\n",
		res.TransactionIDs, res.Quote.Total.StringFixed(2), res.PaymentID)
	return nil
}

func (a *app) pickProducts(ctx context.Context, list string) ([]models.Product, error) {
	all, err := catalog.NewService(a.api).ListProducts(ctx, catalog.Query{})
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]models.Product, len(all))
	for _, p := range all {
		byID[p.ID] = p
	}

	var out []models.Product
	for _, field := range strings.Split(list, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid product ID %q", field)
		}
		p, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("product %d is not available", id)
		}
		out = append(out, p)
	}
	return out, nil
}

func (a *app) status(ctx context.Context, args []string) error {
	fs := newFlags("status")
	watch := fs.Bool("watch", false, "keep polling until interrupted")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := a.signInClient(ctx)
	if err != nil {
		return err
	}

	poller := catalog.NewPoller(a.api, a.cfg.PollInterval,
		catalog.WithTransactions(client.ID),
		catalog.WithPollerLogger(a.log.Named("poller")),
	)
	if !*watch {
		if err := poller.Refresh(ctx); err != nil {
			return err
		}
		return a.printTransactions(poller.Snapshot())
	}

	go func() {
		_ = poller.Run(ctx)
	}()

	ticker := time.NewTicker(a.cfg.PollInterval)
	defer ticker.Stop()
	var last time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		snap := poller.Snapshot()
		if snap.UpdatedAt.Equal(last) {
			continue
		}
		last = snap.UpdatedAt
		if err := a.printTransactions(snap); err != nil {
			return err
		}
	}
}

func (a *app) printTransactions(snap catalog.Snapshot) error {
	if snap.Err != nil && snap.UpdatedAt.IsZero() {
		return snap.Err
	}
	if snap.Err != nil {
		a.log.Warn("showing stale data", zap.Error(snap.Err))
	}

	txns := snap.Transactions
	sort.Slice(txns, func(i, j int) bool { return txns[i].TransactionDate.After(txns[j].TransactionDate) })

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "as of %s\nID\tKIND\tTAILOR\tSTATUS\tTOTAL\n", snap.UpdatedAt.Format(time.RFC3339))
	for _, t := range txns {
		kind := "order"
		if t.IsRequest() {
			kind = "request"
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n", t.ID, kind, t.TailorID, t.Status, t.TotalPrice.StringFixed(2))
	}
	if len(txns) == 0 {
		fmt.Fprintln(tw, "no transactions")
	}
	return tw.Flush()
}
